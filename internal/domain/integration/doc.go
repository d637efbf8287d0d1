// Package integration содержит каталог задач интеграции и документов,
// разреженный оверлей пользовательских флагов и расчёт процента интеграции.
//
// Каталог (Phases, Documents) задан в коде, в БД хранится только оверлей:
// строки checklist_progress (user_id, phase_id, item_id) и
// document_progress (user_id, document_id). Удалений нет, переключение
// только меняет флаг, последняя запись побеждает.
//
// ComputeProgress - чистая функция. Прикладной слой пересчитывает процент
// при каждом переключении и пишет его в профиль той же транзакцией.
package integration

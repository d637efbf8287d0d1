// Package profile содержит доменную модель профиля студента.
//
// Профиль - одна широкая запись на пользователя: национальность, города,
// университет, цели, флаг "уже во Франции", статус верификации и премиум.
// Процент интеграции хранится в профиле как кэш производного значения
// (см. пакет integration) и перезаписывается при каждом переключении задачи
// или документа.
//
// # Инварианты
//
//  1. Национальность "Française" принудительно выставляет InFrance = true.
//  2. Не больше трёх целей (objectives), дубликаты схлопываются.
//  3. Статус меняется только в одну сторону: explorateur -> temoin,
//     и только через подтверждение академической почты.
//
// # Публичная проекция
//
// PublicView() исключает чувствительные поля (заметки администратора,
// финансовые данные). HTTP-слой отдаёт клиенту только её.
//
// Пакет не имеет внешних зависимостей.
package profile

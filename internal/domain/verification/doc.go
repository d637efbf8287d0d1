// Package verification содержит процесс подтверждения академической почты.
//
// Автомат Workflow: idle -> input -> sending -> sent -> confirmed, плюс error
// (достижим из input и sending, Retry возвращает к input).
//
// Правила на шаге sending:
//
//  1. Не больше MaxAttemptsPerWindow попыток за AttemptWindow.
//  2. Каждая попытка сохраняется и учитывается в лимите.
//  3. Адрес, уже подтверждённый другим пользователем, даёт итог duplicate.
//  4. Токен - 32 случайных байта в hex, в БД хранится только BLAKE2b-256.
//  5. Ссылка действительна TokenTTL.
package verification

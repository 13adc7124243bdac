// Package orchestrator выполняет target пайплайна вместе с его зависимостями.
//
// # Обзор
//
// Orchestrator строится один раз из определений задач (New валидирует
// граф и отклоняет циклы) и затем выполняет Run(ctx, target, params):
//
//  1. Замыкание зависимостей target в топологическом порядке
//  2. До первого action: guards всех задач, затем обязательные параметры
//     и checks задач, которые guard не пропускает
//  3. Action задач по порядку
//  4. Первая ошибка останавливает run; недостигнутые задачи не стартуют
//
// Выполнение строго последовательное, каждая задача — не более одного
// раза за run. Сам оркестратор не делает I/O: метрики, журнал и события
// подключаются через Observer.
package orchestrator

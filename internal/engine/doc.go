// Package engine содержит модель графа задач пайплайна.
//
// Включает:
//   - validate.go — валидация определений задач (имена, ссылки, self-dependency)
//   - dag.go      — построение DAG, проверка на циклы, замыкание зависимостей target
//
// Engine отвечает за понимание структуры пайплайна и порядок выполнения
// задач. Выполнение задач — забота пакета orchestrator.
package engine

// Package publish реализует политику условной публикации NuGet пакетов.
//
// Релиз с основной ветки (без pre-release метки) уходит сначала
// в публичный feed, затем в основной. Всё остальное — только в основной.
// Пакеты *symbols.nupkg не публикуются никогда.
package publish

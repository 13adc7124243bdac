// Package build описывает пайплайн упаковки .NET библиотеки.
//
// Задачи (в порядке выполнения для target Push):
//
//	Print → Clean → Restore → Compile → Test → Pack → Push
//
// Print объявлен как DependentFor(Clean): он выполняется перед Clean,
// если Clean попал в план. Clean скрыт из списка targets.
//
// Push выполняется только на CI сервере, требует nuget-api-key,
// nuget-api-url и конфигурацию Release; правила выбора feed —
// в пакете publish.
package build

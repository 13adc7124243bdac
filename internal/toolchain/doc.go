// Package toolchain инкапсулирует вызовы dotnet CLI.
//
// Toolchain — интерфейс с одной операцией на шаг сборки (restore, publish,
// test, pack, push). DotNet собирает аргументы командной строки и передаёт
// их Runner; ExecRunner запускает процесс через os/exec.
//
// Значения --api-key маскируются в логах.
package toolchain

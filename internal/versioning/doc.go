// Package versioning вычисляет версию сборки.
//
// GitVersion вызывает dotnet-gitversion и читает его JSON переменные.
// Static используется для --version-override и в тестах.
package versioning

// Package config загружает конфигурацию сборки.
//
// Файл .buildflow/parameters.yaml описывает раскладку решения, метаданные
// пакета и значения параметров. Параметры запуска собираются из значений
// по умолчанию, файла, окружения (NUGET_API_KEY) и флагов командной строки,
// в порядке возрастания приоритета.
//
// Пример файла:
//
//	version: 1
//	project:
//	  solution: src/BusinessValidation/BusinessValidation.sln
//	  library: src/BusinessValidation/BusinessValidation/BusinessValidation.csproj
//	  tests: src/BusinessValidation/BusinessValidation.Tests/BusinessValidation.Tests.csproj
//	package:
//	  id: BusinessValidation
//	  authors: Jane Doe
//	  license: MIT
//	parameters:
//	  nuget-api-url: https://pkgs.dev.azure.com/org/_packaging/feed/nuget/v3/index.json
package config

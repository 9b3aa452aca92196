// Пакет interfaces описывает интерфейсы логирования, от которых зависят пакеты pkg/*.
//
// Уровни абстракции:
//
// 1. BasicLogger - совместим со стандартным log.Logger
//
// 2. LevelLogger и FormattedLevelLogger - уровни Info, Error, Debug, Warn
//
// 3. ContextLogger - логгер с полями (request_id, chat_id и т.п.) и ошибкой
//
// Комбинированные интерфейсы:
//   - Logger - все возможности
//   - SimpleLogger - уровни без контекста. Его принимают pkg/request и pkg/googlesheet
//
// Использование:
//
//	type Client struct {
//	    log interfaces.SimpleLogger
//	}
package interfaces

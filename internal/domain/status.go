package domain

// ImportLogStatus: статус запуска.
//
// Жизненный цикл:
//
//	in progress -> success
//	            -> error
type ImportLogStatus string

const (
	ImportLogStatusInProgress ImportLogStatus = "in progress"
	ImportLogStatusSuccess    ImportLogStatus = "success"
	ImportLogStatusError      ImportLogStatus = "error"
)

// IsTerminal возвращает true, если статус финальный.
func (s ImportLogStatus) IsTerminal() bool {
	switch s {
	case ImportLogStatusSuccess, ImportLogStatusError:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление ImportLogStatus.
func (s ImportLogStatus) String() string {
	return string(s)
}

// ParseImportLogStatus парсит строку в ImportLogStatus.
func ParseImportLogStatus(s string) ImportLogStatus {
	switch s {
	case "success":
		return ImportLogStatusSuccess
	case "error":
		return ImportLogStatusError
	default:
		return ImportLogStatusInProgress
	}
}

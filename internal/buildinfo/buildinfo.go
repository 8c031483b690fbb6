// Package buildinfo предоставляет информацию о сборке приложения:
// версию, дату сборки и commit hash, внедряемые через ldflags.
package buildinfo

import "fmt"

// Info содержит информацию о сборке приложения.
type Info struct {
	Version string
	Date    string
	Commit  string
}

// NewInfo создает информацию о сборке; пустые значения заменяются на "N/A".
func NewInfo(version, date, commit string) *Info {
	return &Info{
		Version: orNA(version),
		Date:    orNA(date),
		Commit:  orNA(commit),
	}
}

// Print выводит информацию о сборке в консоль.
func (info *Info) Print() {
	fmt.Printf("Build version: %s\n", info.Version)
	fmt.Printf("Build date: %s\n", info.Date)
	fmt.Printf("Build commit: %s\n", info.Commit)
}

// String возвращает строковое представление информации о сборке.
func (info *Info) String() string {
	return fmt.Sprintf("Version: %s, Date: %s, Commit: %s", info.Version, info.Date, info.Commit)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Пакет static — встроенные статические ресурсы консоли базы знаний.
// Одностраничное приложение (index.html + app.js + style.css)
// встраивается в бинарник через //go:embed и раздаётся через HTTP.
package static

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed index.html app.js style.css
var content embed.FS

// FS возвращает fs.FS для прямого доступа к встроенным файлам.
func FS() fs.FS {
	return content
}

// Handler возвращает обработчик статики консоли.
// Известные файлы отдаются как есть; любой другой путь получает
// index.html — маршрутизацию внутри консоли выполняет браузер.
func Handler() http.Handler {
	fileServer := http.FileServer(http.FS(content))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		if _, err := fs.Stat(content, path); err != nil {
			// SPA fallback
			r.URL.Path = "/"
		}
		fileServer.ServeHTTP(w, r)
	})
}

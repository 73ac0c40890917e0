package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Сырой HTML из ответа модели не пропускается: goldmark по умолчанию
// заменяет его комментарием.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// Markdown превращает текст совета в безопасный HTML для шаблона.
func Markdown(src string) (template.HTML, error) {
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

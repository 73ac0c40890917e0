package httpserver

import (
	"embed"
	"html/template"

	"bmiadvisor/internal/bmi"
	"bmiadvisor/internal/render"
	"bmiadvisor/internal/session"
)

//go:embed templates/index.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type pageResult struct {
	Display string
	Label   string
}

type pageView struct {
	Measurement  bmi.Measurement
	Result       *pageResult
	ImageURI     template.URL
	HealthAdvice template.HTML
	FoodAdvice   template.HTML
	InProgress   bool
	Notice       string
	ModelName    string
}

func (h *handler) newPageView(st session.State, notice string) pageView {
	view := pageView{
		Measurement: st.Measurement,
		InProgress:  st.InProgress,
		Notice:      notice,
		ModelName:   h.modelName,
	}
	if st.Result != nil {
		view.Result = &pageResult{
			Display: st.Result.String(),
			Label:   st.Result.Category.Label(),
		}
	}
	if st.Image != nil {
		// data URI собран загрузчиком из проверенного image/* типа.
		view.ImageURI = template.URL(st.Image.DisplayURI)
	}
	view.HealthAdvice = h.markdown(st.HealthAdvice)
	view.FoodAdvice = h.markdown(st.FoodAdvice)
	return view
}

func (h *handler) markdown(src string) template.HTML {
	html, err := render.Markdown(src)
	if err != nil {
		h.logger.Warn("render advice failed", "error", err.Error())
		return template.HTML(template.HTMLEscapeString(src))
	}
	return html
}

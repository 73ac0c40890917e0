package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	"bmiadvisor/internal/advice"
	"bmiadvisor/internal/bmi"
	"bmiadvisor/internal/imageload"
	"bmiadvisor/internal/middleware"
	"bmiadvisor/internal/render"
	"bmiadvisor/internal/session"
)

// multipartOverhead запас на границы и заголовки частей multipart.
const multipartOverhead = 1 << 20

type handler struct {
	logger        *slog.Logger
	advisor       session.Advisor
	loader        session.ImageLoader
	maxImageBytes int64
	modelName     string
	page          *template.Template
}

type measurementInput struct {
	Height *string `json:"height"`
	Weight *string `json:"weight"`
	Age    *string `json:"age"`
}

type resultResponse struct {
	BMI      float64      `json:"bmi"`
	Display  string       `json:"display"`
	Category bmi.Category `json:"category"`
	Label    string       `json:"label"`
}

type adviceResponse struct {
	Kind   advice.Kind `json:"kind"`
	Advice string      `json:"advice"`
	HTML   string      `json:"html"`
}

func newResultResponse(res bmi.Result) resultResponse {
	return resultResponse{
		BMI:      res.Value,
		Display:  res.String(),
		Category: res.Category,
		Label:    res.Category.Label(),
	}
}

func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	notice := sess.ConsumeNotice()
	view := h.newPageView(sess.Snapshot(), notice)

	var buf bytes.Buffer
	if err := h.page.Execute(&buf, view); err != nil {
		h.logger.Error("render page failed",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *handler) state(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, sessionFrom(r.Context()).Snapshot())
}

func (h *handler) measurement(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	in, err := readMeasurement(r)
	if err != nil {
		h.fail(w, r, sess, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	applyMeasurement(sess, in)

	if !wantsJSON(r) {
		redirectHome(w, r)
		return
	}
	WriteJSON(w, http.StatusOK, sess.Snapshot().Measurement)
}

func (h *handler) calculate(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	in, err := readMeasurement(r)
	if err != nil {
		h.fail(w, r, sess, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	applyMeasurement(sess, in)

	res, err := sess.Calculate()
	if err != nil {
		h.fail(w, r, sess, http.StatusUnprocessableEntity, "invalid_measurement", session.NoticeInvalidMeasurement)
		return
	}

	if !wantsJSON(r) {
		redirectHome(w, r)
		return
	}
	WriteJSON(w, http.StatusOK, newResultResponse(res))
}

func (h *handler) image(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		h.fail(w, r, sess, http.StatusBadRequest, "bad_request", "multipart body with an image field is required")
		return
	}
	part, err := nextPart(mr, "image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.fail(w, r, sess, http.StatusRequestEntityTooLarge, "image_too_large", session.ImageTooLargeNotice(h.maxImageBytes))
			return
		}
		h.fail(w, r, sess, http.StatusBadRequest, "bad_request", "image field is missing")
		return
	}
	defer part.Close()

	img, err := sess.SelectImage(r.Context(), h.loader, part, part.FileName(), part.Header.Get("Content-Type"), -1)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, imageload.ErrTooLarge), errors.As(err, &maxErr):
			h.fail(w, r, sess, http.StatusRequestEntityTooLarge, "image_too_large", session.ImageTooLargeNotice(h.maxImageBytes))
		case errors.Is(err, imageload.ErrNotImage):
			h.fail(w, r, sess, http.StatusUnsupportedMediaType, "not_image", session.NoticeNotImage)
		case errors.Is(err, session.ErrSuperseded):
			h.fail(w, r, sess, http.StatusConflict, "superseded", err.Error())
		default:
			h.logger.Warn("image upload failed",
				slog.String("error", err.Error()),
				slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			)
			h.fail(w, r, sess, http.StatusBadRequest, "bad_request", "failed to read image")
		}
		return
	}

	if !wantsJSON(r) {
		redirectHome(w, r)
		return
	}
	WriteJSON(w, http.StatusOK, img)
}

func (h *handler) healthAdvice(w http.ResponseWriter, r *http.Request) {
	h.requestAdvice(w, r, advice.KindHealth)
}

func (h *handler) foodAdvice(w http.ResponseWriter, r *http.Request) {
	h.requestAdvice(w, r, advice.KindFood)
}

func (h *handler) requestAdvice(w http.ResponseWriter, r *http.Request, kind advice.Kind) {
	sess := sessionFrom(r.Context())
	// Ответ сохраняется в сессии, даже если клиент не дождался его.
	ctx := context.WithoutCancel(r.Context())

	var (
		text string
		err  error
	)
	if kind == advice.KindFood {
		text, err = sess.RequestFoodAdvice(ctx, h.advisor)
	} else {
		text, err = sess.RequestHealthAdvice(ctx, h.advisor)
	}
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoResult):
			h.fail(w, r, sess, http.StatusPreconditionFailed, "bmi_required", session.NoticeNoResult)
		case errors.Is(err, session.ErrNoImage):
			h.fail(w, r, sess, http.StatusPreconditionFailed, "image_required", session.NoticeNoImage)
		case errors.Is(err, session.ErrBusy):
			h.fail(w, r, sess, http.StatusConflict, "busy", session.NoticeBusy)
		case errors.Is(err, session.ErrSuperseded):
			h.fail(w, r, sess, http.StatusConflict, "superseded", err.Error())
		default:
			h.fail(w, r, sess, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}

	if !wantsJSON(r) {
		redirectHome(w, r)
		return
	}
	html, err := render.Markdown(text)
	if err != nil {
		h.logger.Warn("render advice failed", slog.String("error", err.Error()))
	}
	WriteJSON(w, http.StatusOK, adviceResponse{Kind: kind, Advice: text, HTML: string(html)})
}

// fail отвечает ошибкой API; форму возвращает на страницу, где уведомление покажется.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, sess *session.Session, status int, code, message string) {
	if !wantsJSON(r) {
		redirectHome(w, r)
		return
	}
	if notice := sess.ConsumeNotice(); notice != "" {
		message = notice
	}
	WriteJSONError(w, status, code, message)
}

func readMeasurement(r *http.Request) (measurementInput, error) {
	var in measurementInput

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
			return in, fmt.Errorf("decode body: %w", err)
		}
		return in, nil
	}

	if err := r.ParseForm(); err != nil {
		return in, fmt.Errorf("parse form: %w", err)
	}
	field := func(key string) *string {
		if _, ok := r.PostForm[key]; !ok {
			return nil
		}
		v := r.PostForm.Get(key)
		return &v
	}
	in.Height = field("height")
	in.Weight = field("weight")
	in.Age = field("age")
	return in, nil
}

func applyMeasurement(sess *session.Session, in measurementInput) {
	if in.Height != nil {
		sess.SetInput(session.FieldHeight, *in.Height)
	}
	if in.Weight != nil {
		sess.SetInput(session.FieldWeight, *in.Weight)
	}
	if in.Age != nil {
		sess.SetInput(session.FieldAge, *in.Age)
	}
}

func nextPart(mr *multipart.Reader, name string) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == name {
			return part, nil
		}
		part.Close()
	}
}

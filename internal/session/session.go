package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"bmiadvisor/internal/advice"
	"bmiadvisor/internal/bmi"
	"bmiadvisor/internal/imageload"
)

var (
	ErrNoResult   = errors.New("bmi has not been calculated")
	ErrNoImage    = errors.New("image has not been uploaded")
	ErrBusy       = errors.New("advice request already in progress")
	ErrSuperseded = errors.New("superseded by a newer request")
)

// Уведомления для пользователя; в вебе показываются вместо alert.
const (
	NoticeInvalidMeasurement = "有効な身長と体重を入力してください。"
	NoticeNotImage           = "画像ファイルを選択してください。"
	NoticeNoResult           = "まず身長と体重を入力してBMIを計算してください。"
	NoticeNoImage            = "BMIを計算し、画像をアップロードしてください。"
	NoticeBusy               = "アドバイスを生成中です。しばらくお待ちください。"
)

// ImageTooLargeNotice называет действующий лимит: "画像は5MB以下にしてください。".
func ImageTooLargeNotice(limit int64) string {
	switch {
	case limit >= 1<<20 && limit%(1<<20) == 0:
		return fmt.Sprintf("画像は%dMB以下にしてください。", limit>>20)
	case limit >= 1<<10 && limit%(1<<10) == 0:
		return fmt.Sprintf("画像は%dKB以下にしてください。", limit>>10)
	default:
		return fmt.Sprintf("画像は%dバイト以下にしてください。", limit)
	}
}

type Field string

const (
	FieldHeight Field = "height"
	FieldWeight Field = "weight"
	FieldAge    Field = "age"
)

// Advisor источник советов; реализуется advice.Service.
type Advisor interface {
	General(ctx context.Context, m bmi.Measurement, r bmi.Result) string
	Food(ctx context.Context, m bmi.Measurement, r bmi.Result, img *imageload.Image) string
}

type ImageLoader interface {
	Load(ctx context.Context, r io.Reader, name, mimeType string, size int64) (*imageload.Image, error)
}

// State состояние одного клиента. Меняется только методами Session.
type State struct {
	ID           string           `json:"id"`
	Measurement  bmi.Measurement  `json:"measurement"`
	Result       *bmi.Result      `json:"result"`
	Image        *imageload.Image `json:"image"`
	HealthAdvice string           `json:"health_advice"`
	FoodAdvice   string           `json:"food_advice"`
	InProgress   bool             `json:"in_progress"`
	Notice       string           `json:"notice,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type inflight struct {
	kind     advice.Kind
	inputGen uint64
	imageGen uint64
	cancel   context.CancelFunc
}

// Session владеет State и сериализует изменения. Блокировка не держится
// во время загрузки файла и вызова модели.
type Session struct {
	mu       sync.Mutex
	state    State
	inputGen uint64
	// imageGen меняется только при замене State.Image.
	imageGen uint64
	// loadSeq нумерует загрузки; acceptedLoad номер последней принятой.
	loadSeq      uint64
	acceptedLoad uint64
	loads        map[uint64]context.CancelFunc
	request      *inflight
	now          func() time.Time
}

func New(id string) *Session {
	s := &Session{now: time.Now}
	s.state.ID = id
	s.state.UpdatedAt = s.now()
	return s
}

// Snapshot возвращает копию состояния.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	if st.Result != nil {
		res := *st.Result
		st.Result = &res
	}
	return st
}

// ConsumeNotice отдаёт уведомление один раз и очищает его.
func (s *Session) ConsumeNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	notice := s.state.Notice
	s.state.Notice = ""
	return notice
}

// SetInput фильтрует ввод и сохраняет одно поле.
func (s *Session) SetInput(field Field, raw string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.state.Measurement
	value := bmi.Normalize(raw)
	switch field {
	case FieldHeight:
		m.HeightCm = value
	case FieldWeight:
		m.WeightKg = value
	case FieldAge:
		m.AgeYears = value
	default:
		return value
	}
	s.setMeasurementLocked(m)
	return value
}

// SetMeasurement фильтрует и сохраняет все поля сразу.
func (s *Session) SetMeasurement(m bmi.Measurement) bmi.Measurement {
	s.mu.Lock()
	defer s.mu.Unlock()

	m = m.Normalized()
	s.setMeasurementLocked(m)
	return m
}

// setMeasurementLocked не сбрасывает рассчитанный ИМТ: он остаётся до пересчёта.
// Запущенный запрос совета отменяется, его ответ будет проигнорирован.
func (s *Session) setMeasurementLocked(m bmi.Measurement) {
	if m == s.state.Measurement {
		return
	}
	s.state.Measurement = m
	s.inputGen++
	if s.request != nil {
		s.request.cancel()
	}
	s.touchLocked()
}

// Calculate считает ИМТ по сохранённому вводу. При ошибке меняется только уведомление.
func (s *Session) Calculate() (bmi.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.state.Measurement.Calculate()
	if err != nil {
		s.state.Notice = NoticeInvalidMeasurement
		return bmi.Result{}, err
	}
	s.state.Result = &res
	s.state.Notice = ""
	s.touchLocked()
	return res, nil
}

// SelectImage загружает новый файл. Принятый файл вытесняет более ранние
// незавершённые загрузки: они отменяются, а их результат отбрасывается с ErrSuperseded.
// Отклонённый файл (слишком большой, не изображение) состояние не трогает:
// прежняя картинка, параллельные загрузки и запрос совета по блюду остаются.
func (s *Session) SelectImage(ctx context.Context, loader ImageLoader, r io.Reader, name, mimeType string, size int64) (*imageload.Image, error) {
	s.mu.Lock()
	s.loadSeq++
	ticket := s.loadSeq
	loadCtx, cancel := context.WithCancel(ctx)
	if s.loads == nil {
		s.loads = make(map[uint64]context.CancelFunc)
	}
	s.loads[ticket] = cancel
	s.mu.Unlock()
	defer cancel()

	img, err := loader.Load(loadCtx, r, name, mimeType, size)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.loads, ticket)
	if ticket < s.acceptedLoad {
		return nil, ErrSuperseded
	}
	if err != nil {
		var tooLarge *imageload.TooLargeError
		switch {
		case errors.As(err, &tooLarge):
			s.state.Notice = ImageTooLargeNotice(tooLarge.Limit)
		case errors.Is(err, imageload.ErrTooLarge):
			s.state.Notice = ImageTooLargeNotice(imageload.DefaultMaxBytes)
		case errors.Is(err, imageload.ErrNotImage):
			s.state.Notice = NoticeNotImage
		}
		return nil, err
	}

	s.acceptedLoad = ticket
	for t, cancelLoad := range s.loads {
		if t < ticket {
			cancelLoad()
			delete(s.loads, t)
		}
	}
	s.imageGen++
	s.state.Image = img
	s.state.Notice = ""
	if s.request != nil && s.request.kind == advice.KindFood {
		s.request.cancel()
	}
	s.touchLocked()
	return img, nil
}

// RequestHealthAdvice запрашивает общий совет. Требует рассчитанного ИМТ.
func (s *Session) RequestHealthAdvice(ctx context.Context, advisor Advisor) (string, error) {
	return s.requestAdvice(ctx, advice.KindHealth, func(ctx context.Context, m bmi.Measurement, r bmi.Result, _ *imageload.Image) string {
		return advisor.General(ctx, m, r)
	})
}

// RequestFoodAdvice запрашивает оценку блюда. Требует ИМТ и загруженное изображение.
func (s *Session) RequestFoodAdvice(ctx context.Context, advisor Advisor) (string, error) {
	return s.requestAdvice(ctx, advice.KindFood, advisor.Food)
}

type adviceCall func(ctx context.Context, m bmi.Measurement, r bmi.Result, img *imageload.Image) string

func (s *Session) requestAdvice(ctx context.Context, kind advice.Kind, call adviceCall) (string, error) {
	s.mu.Lock()
	if s.state.Result == nil {
		if kind == advice.KindFood {
			s.state.Notice = NoticeNoImage
		} else {
			s.state.Notice = NoticeNoResult
		}
		s.mu.Unlock()
		return "", ErrNoResult
	}
	if kind == advice.KindFood && s.state.Image == nil {
		s.state.Notice = NoticeNoImage
		s.mu.Unlock()
		return "", ErrNoImage
	}
	if s.request != nil {
		s.state.Notice = NoticeBusy
		s.mu.Unlock()
		return "", ErrBusy
	}

	callCtx, cancel := context.WithCancel(ctx)
	req := &inflight{
		kind:     kind,
		inputGen: s.inputGen,
		imageGen: s.imageGen,
		cancel:   cancel,
	}
	s.request = req
	s.state.InProgress = true
	m := s.state.Measurement
	r := *s.state.Result
	img := s.state.Image
	s.mu.Unlock()

	// Флаг снимается на любом пути, включая panic в вызове.
	defer func() {
		cancel()
		s.mu.Lock()
		if s.request == req {
			s.request = nil
			s.state.InProgress = false
		}
		s.mu.Unlock()
	}()

	text := call(callCtx, m, r, img)

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.inputGen != s.inputGen || (kind == advice.KindFood && req.imageGen != s.imageGen) {
		return "", ErrSuperseded
	}
	switch kind {
	case advice.KindFood:
		s.state.FoodAdvice = text
	default:
		s.state.HealthAdvice = text
	}
	s.touchLocked()
	return text, nil
}

func (s *Session) touchLocked() {
	s.state.UpdatedAt = s.now()
}

package request

import (
	"context"
	"errors"
	"sync"
	"time"

	"partnerapp/pkg/logger/interfaces"
)

var (
	ErrNotProcessing = errors.New("невозможно добавить запрос: обработка не запущена")
	ErrStopped       = errors.New("обработка запросов остановлена")
)

// Request единица работы в очереди
type Request func() error

// RequestHandler выполняет запросы строго по одному с паузой между ними.
// Два канала: обычный и низкоприоритетный.
type RequestHandler struct {
	requests            chan Request
	lowPriorityRequests chan Request
	ctx                 context.Context
	cancel              context.CancelFunc
	mu                  sync.Mutex
	isProcessing        bool
	logger              interfaces.SimpleLogger
}

// NewRequestHandler создает новый экземпляр RequestHandler с заданной конфигурацией.
func NewRequestHandler(config Config) (*RequestHandler, error) {
	if config.BufferSize < 0 {
		return nil, errors.New("размер буфера не может быть отрицательным")
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &RequestHandler{
		requests:            make(chan Request, config.BufferSize),
		lowPriorityRequests: make(chan Request, config.BufferSize),
		ctx:                 ctx,
		cancel:              cancel,
		logger:              config.Logger,
	}, nil
}

func (app *RequestHandler) logError(format string, args ...interface{}) {
	if app.logger == nil {
		return
	}
	app.logger.Errorf(format, args...)
}

func (app *RequestHandler) enqueue(ctx context.Context, ch chan Request, req Request) error {
	app.mu.Lock()
	processing := app.isProcessing
	app.mu.Unlock()
	if !processing {
		return ErrNotProcessing
	}

	select {
	case ch <- req:
		return nil
	case <-app.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleRequest добавляет запрос в канал обычного приоритета.
// Возвращает ошибку, если обработка не запущена.
func (app *RequestHandler) HandleRequest(req Request) error {
	return app.enqueue(context.Background(), app.requests, req)
}

// HandleLowPriorityRequest добавляет запрос в канал низкого приоритета.
func (app *RequestHandler) HandleLowPriorityRequest(req Request) error {
	return app.enqueue(context.Background(), app.lowPriorityRequests, req)
}

// begin помечает обработчик запущенным. false - уже запущен или остановлен
func (app *RequestHandler) begin() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.isProcessing || app.ctx.Err() != nil {
		return false
	}
	app.isProcessing = true
	return true
}

func (app *RequestHandler) finish() {
	app.mu.Lock()
	app.isProcessing = false
	app.mu.Unlock()
}

// Start запускает обработку в отдельной горутине. После возврата запросы уже принимаются
func (app *RequestHandler) Start(pause time.Duration) {
	if !app.begin() {
		return
	}
	go app.loop(pause, nil)
}

// StartWithDynamicPause как Start, но пауза растет, пока запросы идут подряд
func (app *RequestHandler) StartWithDynamicPause(defaultPause time.Duration, incrementPause func(currentPause time.Duration) time.Duration) {
	if !app.begin() {
		return
	}
	go app.loop(defaultPause, incrementPause)
}

// ProcessRequests блокирующий вариант Start.
// Сначала обрабатываются запросы обычного приоритета, затем низкоприоритетные.
func (app *RequestHandler) ProcessRequests(pause time.Duration) {
	if !app.begin() {
		return
	}
	app.loop(pause, nil)
}

func (app *RequestHandler) loop(defaultPause time.Duration, incrementPause func(time.Duration) time.Duration) {
	defer app.finish()

	currentPause := defaultPause
	for {
		var req Request
		select {
		case <-app.ctx.Done():
			return
		case req = <-app.requests:
		default:
			select {
			case <-app.ctx.Done():
				return
			case req = <-app.requests:
			case req = <-app.lowPriorityRequests:
			}
		}

		if err := req(); err != nil {
			app.logError("Ошибка выполнения запроса: %v", err)
		}

		if incrementPause != nil {
			if len(app.requests)+len(app.lowPriorityRequests) > 0 {
				currentPause = incrementPause(currentPause)
			} else {
				currentPause = defaultPause
			}
		}

		if currentPause <= 0 {
			continue
		}
		timer := time.NewTimer(currentPause)
		select {
		case <-app.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// StopProcessing останавливает обработку. Запросы, ждущие в очереди, получат ErrStopped
func (app *RequestHandler) StopProcessing() {
	app.cancel()
	app.finish()
}

// HandleSyncRequest ставит запрос в очередь и ждет его выполнения или отмены ctx.
func (h *RequestHandler) HandleSyncRequest(ctx context.Context, fn func() error) error {
	return h.handleSync(ctx, h.requests, fn)
}

// HandleSyncLowPriorityRequest низкоприоритетный вариант HandleSyncRequest.
func (h *RequestHandler) HandleSyncLowPriorityRequest(ctx context.Context, fn func() error) error {
	return h.handleSync(ctx, h.lowPriorityRequests, fn)
}

func (h *RequestHandler) handleSync(ctx context.Context, ch chan Request, fn func() error) error {
	done := make(chan error, 1)

	err := h.enqueue(ctx, ch, func() error {
		if err := ctx.Err(); err != nil {
			done <- err
			return nil
		}
		err := fn()
		done <- err
		return err
	})
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrStopped
	}
}

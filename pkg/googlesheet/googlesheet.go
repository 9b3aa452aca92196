package googlesheet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"partnerapp/pkg/logger/interfaces"
	"partnerapp/pkg/request"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Последняя колонка, которую читает и пишет клиент
const lastColumn = "Z"

var ErrSheetNotFound = errors.New("лист не найден")

type Config struct {
	SpreadsheetID string
	Credentials   []byte // json сервисного аккаунта
	BufferSize    int
	RequestPause  time.Duration
	Logger        interfaces.SimpleLogger

	// Дополнительные опции клиента, например endpoint в тестах
	ClientOptions []option.ClientOption
}

// Client работает с листами одной Google таблицы как с таблицами строк.
// Все обращения к API идут через одну очередь, по одному
type Client struct {
	service       *sheets.Service
	spreadsheetID string
	request       *request.RequestHandler
	log           interfaces.SimpleLogger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// New создает клиента и запускает очередь запросов
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("не задан ID таблицы")
	}

	opts := make([]option.ClientOption, 0, len(cfg.ClientOptions)+2)
	if len(cfg.Credentials) > 0 {
		opts = append(opts, option.WithCredentialsJSON(cfg.Credentials), option.WithScopes(sheets.SpreadsheetsScope))
	}
	opts = append(opts, cfg.ClientOptions...)

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("не удается инициализировать сервис Google Sheets: %w", err)
	}

	handler, err := request.NewRequestHandler(request.Config{
		BufferSize: cfg.BufferSize,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	if cfg.RequestPause > 0 {
		handler.StartWithDynamicPause(cfg.RequestPause, request.IncrementPause(1.5, cfg.RequestPause, 10*cfg.RequestPause))
	} else {
		handler.Start(0)
	}

	return &Client{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		request:       handler,
		log:           cfg.Logger,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// Close останавливает очередь запросов
func (c *Client) Close() {
	c.request.StopProcessing()
}

func (c *Client) debugf(format string, args ...interface{}) {
	if c.log != nil {
		c.log.Debugf(format, args...)
	}
}

// ReadRows читает все строки листа (A:Z). Хвостовые пустые ячейки API не возвращает.
// Отсутствующий лист дает пустой результат
func (c *Client) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	readRange := fmt.Sprintf("%s!A:%s", sheet, lastColumn)

	var resp *sheets.ValueRange
	err := c.request.HandleSyncRequest(ctx, func() error {
		var err error
		resp, err = c.service.Spreadsheets.Values.Get(c.spreadsheetID, readRange).Context(ctx).Do()
		return err
	})
	if err != nil {
		if isMissingSheet(err) {
			c.debugf("Лист %s отсутствует, считаем пустым", sheet)
			return nil, nil
		}
		return nil, fmt.Errorf("не удалось извлечь данные из листа %s: %w", sheet, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		values := make([]string, len(row))
		for i, cell := range row {
			if cell != nil {
				values[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, values)
	}
	return rows, nil
}

// AppendRow добавляет строку в конец листа без интерпретации значений (RAW)
func (c *Client) AppendRow(ctx context.Context, sheet string, values []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{toInterfaces(values)}}
	appendRange := fmt.Sprintf("%s!A:%s", sheet, lastColumn)

	err := c.request.HandleSyncRequest(ctx, func() error {
		_, err := c.service.Spreadsheets.Values.Append(c.spreadsheetID, appendRange, vr).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("не удалось добавить строку в лист %s: %w", sheet, err)
	}
	return nil
}

// UpdateRow перезаписывает строку row (нумерация с 1)
func (c *Client) UpdateRow(ctx context.Context, sheet string, row int, values []string) error {
	if row < 1 {
		return fmt.Errorf("некорректный номер строки: %d", row)
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{toInterfaces(values)}}
	updateRange := fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn, row)

	err := c.request.HandleSyncRequest(ctx, func() error {
		_, err := c.service.Spreadsheets.Values.Update(c.spreadsheetID, updateRange, vr).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("не удалось обновить строку %d листа %s: %w", row, sheet, err)
	}
	return nil
}

// DeleteRow удаляет строку row (нумерация с 1), строки ниже сдвигаются вверх
func (c *Client) DeleteRow(ctx context.Context, sheet string, row int) error {
	if row < 1 {
		return fmt.Errorf("некорректный номер строки: %d", row)
	}
	sheetID, err := c.sheetID(ctx, sheet)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
					// у первого листа sheetId = 0, без этого поле не уйдет в запрос
					ForceSendFields: []string{"SheetId", "StartIndex", "EndIndex"},
				},
			},
		}},
	}

	err = c.request.HandleSyncRequest(ctx, func() error {
		_, err := c.service.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("не удалось удалить строку %d листа %s: %w", row, sheet, err)
	}
	return nil
}

// sheetID находит числовой id листа по названию. Найденные id запоминаются
func (c *Client) sheetID(ctx context.Context, sheet string) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[sheet]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	var resp *sheets.Spreadsheet
	err := c.request.HandleSyncRequest(ctx, func() error {
		var err error
		resp, err = c.service.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("не удалось получить список листов: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		c.sheetIDs[s.Properties.Title] = s.Properties.SheetId
	}
	id, ok = c.sheetIDs[sheet]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	return id, nil
}

func isMissingSheet(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "Unable to parse range")
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

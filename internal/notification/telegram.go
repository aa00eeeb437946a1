package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/handyman/internal/config"
	"github.com/Additional-Code/handyman/internal/entity"
)

var statusLabels = map[string]string{
	entity.StatusNew:        "New",
	entity.StatusInProgress: "In progress",
	entity.StatusCompleted:  "Completed",
	entity.StatusCancelled:  "Cancelled",
}

// Telegram posts order events to a chat through the Bot API.
type Telegram struct {
	client    *http.Client
	baseURL   string
	chatID    string
	photoPath func(string) string
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewTelegram builds a Bot API client. photoPath resolves a stored photo name to a local path.
func NewTelegram(cfg config.Notification, photoPath func(string) string, loc *time.Location, logger *zap.Logger) *Telegram {
	if loc == nil {
		loc = time.Local
	}
	apiURL := strings.TrimRight(cfg.Telegram.APIURL, "/")
	return &Telegram{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   apiURL + "/bot" + cfg.Telegram.BotToken,
		chatID:    cfg.Telegram.ChatID,
		photoPath: photoPath,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}
}

// NotifyNewOrder sends the order summary and then every photo. Photo failures
// are logged and do not fail the notification.
func (t *Telegram) NotifyNewOrder(ctx context.Context, evt OrderCreated) error {
	if err := t.sendMessage(ctx, t.orderText(evt)); err != nil {
		return err
	}

	total := len(evt.Photos)
	for i, name := range evt.Photos {
		caption := fmt.Sprintf("Photo %d/%d - Order #%d", i+1, total, evt.OrderID)
		if err := t.sendPhoto(ctx, t.photoPath(name), caption); err != nil {
			t.logger.Warn("telegram photo not sent",
				zap.Int64("order_id", evt.OrderID),
				zap.String("photo", name),
				zap.Error(err),
			)
		}
	}
	return nil
}

// NotifyStatusChange sends a one-line summary of the transition.
func (t *Telegram) NotifyStatusChange(ctx context.Context, evt StatusChanged) error {
	text := fmt.Sprintf(
		"<b>Order #%d status changed</b>\n\n<b>Previous status:</b> %s\n<b>New status:</b> %s\n\n<b>Changed at:</b> %s",
		evt.OrderID,
		html.EscapeString(statusLabel(evt.Previous)),
		html.EscapeString(statusLabel(evt.Current)),
		t.stamp(evt.ChangedAt),
	)
	return t.sendMessage(ctx, text)
}

func (t *Telegram) orderText(evt OrderCreated) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>New order #%d</b>\n\n", evt.OrderID)
	fmt.Fprintf(&b, "<b>Phone:</b> %s\n", html.EscapeString(evt.Phone))
	fmt.Fprintf(&b, "<b>Address:</b> %s\n", html.EscapeString(evt.Address))
	fmt.Fprintf(&b, "<b>Date:</b> %s\n\n", html.EscapeString(evt.SelectedDate))
	fmt.Fprintf(&b, "<b>Description:</b>\n%s\n\n", html.EscapeString(evt.Description))
	fmt.Fprintf(&b, "<b>Photos:</b> %d\n", len(evt.Photos))
	fmt.Fprintf(&b, "<b>Submitted at:</b> %s", t.stamp(evt.CreatedAt))
	return b.String()
}

func (t *Telegram) stamp(at time.Time) string {
	if at.IsZero() {
		at = t.now()
	}
	return at.In(t.loc).Format("2006-01-02 15:04:05")
}

func statusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req)
}

func (t *Telegram) sendPhoto(ctx context.Context, path, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", t.chatID); err != nil {
		return err
	}
	if err := w.WriteField("caption", caption); err != nil {
		return err
	}
	part, err := w.CreateFormFile("photo", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/sendPhoto", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return t.do(req)
}

func (t *Telegram) do(req *http.Request) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil && resp.StatusCode == http.StatusOK {
		return fmt.Errorf("decode telegram response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.OK {
		if out.Description == "" {
			out.Description = resp.Status
		}
		return errors.New("telegram api: " + out.Description)
	}
	return nil
}

package bot

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"quicktable/internal/config"
	"quicktable/internal/database"
	"quicktable/internal/domain"
	"quicktable/internal/models"
	"quicktable/internal/service"
	"quicktable/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelegram struct {
	updatesChan chan tgbotapi.Update
	sendErr     error
	failChat    int64

	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (m *mockTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, c)
	if msg, ok := c.(tgbotapi.MessageConfig); ok && m.failChat != 0 && msg.ChatID != m.failChat {
		return tgbotapi.Message{}, nil
	}
	return tgbotapi.Message{}, m.sendErr
}

func (m *mockTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockTelegram) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updatesChan
}

func (m *mockTelegram) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "quicktable_bot"}
}

func (m *mockTelegram) StopReceivingUpdates() {}

func (m *mockTelegram) sentMessages() []tgbotapi.Chattable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), m.sent...)
}

type mockReservations struct {
	domain.ReservationService
	mock.Mock
}

func (m *mockReservations) UpdateStatus(ctx context.Context, id string, status models.ReservationStatus) (*models.Reservation, error) {
	args := m.Called(ctx, id, status)
	if r, ok := args.Get(0).(*models.Reservation); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReservations) List(ctx context.Context, restaurantID string, filter models.ReservationFilter) ([]models.Reservation, error) {
	args := m.Called(ctx, restaurantID, filter)
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *mockReservations) ListBetween(ctx context.Context, restaurantID, from, to string) ([]models.Reservation, error) {
	args := m.Called(ctx, restaurantID, from, to)
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *mockReservations) Dashboard(ctx context.Context, restaurantID, date string) (*models.DashboardStats, error) {
	args := m.Called(ctx, restaurantID, date)
	if s, ok := args.Get(0).(*models.DashboardStats); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

const staffChat int64 = -100

func newTestBot(t *testing.T) (*Bot, *mockTelegram, *mockReservations, *Metrics) {
	t.Helper()
	tg := &mockTelegram{updatesChan: make(chan tgbotapi.Update, 1)}
	res := &mockReservations{}
	logger := zerolog.New(io.Discard)
	m := NewMetrics(prometheus.NewRegistry())
	b := NewBot(tg, res, config.TelegramConfig{StaffChatIDs: []int64{staffChat, -200}}, time.UTC, m, &logger)
	return b, tg, res, m
}

func pendingReservation() models.Reservation {
	return models.Reservation{
		ID:              "res-1",
		RestaurantID:    "r1",
		CustomerName:    "Ana",
		CustomerPhone:   "+351 900",
		Date:            "2026-10-15",
		Time:            "19:00",
		PartySize:       4,
		SpecialRequests: "window",
		Status:          models.StatusPending,
	}
}

func callbackUpdate(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 7, UserName: "maria"},
		Message: &tgbotapi.Message{MessageID: 42, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func commandUpdate(chatID int64, text, command string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7},
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(command) + 1},
		},
	}}
}

func TestDeliverCreatedNotifiesEveryStaffChat(t *testing.T) {
	b, tg, _, m := newTestBot(t)

	err := b.Deliver(context.Background(), models.ForwardCreated, worker.Snapshot{Reservation: pendingReservation(), RestaurantName: "Casa"})
	require.NoError(t, err)

	sent := tg.sentMessages()
	require.Len(t, sent, 2)
	msg, ok := sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, staffChat, msg.ChatID)
	assert.Contains(t, msg.Text, "New reservation")
	assert.Contains(t, msg.Text, "Casa")
	assert.Contains(t, msg.Text, "Thursday, October 15, 2026 at 19:00")
	assert.Contains(t, msg.Text, "Party of 4")
	assert.Contains(t, msg.Text, "window")

	keyboard, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, keyboard.InlineKeyboard, 1)
	require.Len(t, keyboard.InlineKeyboard[0], 2)
	assert.Equal(t, "confirm:res-1", *keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "cancel:res-1", *keyboard.InlineKeyboard[0][1].CallbackData)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.NotificationsSent))
}

func TestDeliverSettledReservationHasNoButtons(t *testing.T) {
	b, tg, _, _ := newTestBot(t)
	res := pendingReservation()
	res.Status = models.StatusCancelled

	require.NoError(t, b.Deliver(context.Background(), models.ForwardStatusChanged, worker.Snapshot{Reservation: res}))

	msg := tg.sentMessages()[0].(tgbotapi.MessageConfig)
	assert.Contains(t, msg.Text, "Reservation cancelled")
	assert.Nil(t, msg.ReplyMarkup)
}

func TestDeliverSendFailure(t *testing.T) {
	b, tg, _, _ := newTestBot(t)
	tg.sendErr = errors.New("telegram down")

	err := b.Deliver(context.Background(), models.ForwardCreated, worker.Snapshot{Reservation: pendingReservation()})
	assert.ErrorContains(t, err, "telegram down")

	assert.Error(t, b.Deliver(context.Background(), "deleted", worker.Snapshot{Reservation: pendingReservation()}))
}

func TestDeliverRetrySkipsChatsAlreadyNotified(t *testing.T) {
	b, tg, _, m := newTestBot(t)
	tg.sendErr = errors.New("chat unavailable")
	tg.failChat = -200
	snap := worker.Snapshot{Reservation: pendingReservation()}

	err := b.Deliver(context.Background(), models.ForwardCreated, snap)
	assert.ErrorContains(t, err, "chat -200")
	require.Len(t, tg.sentMessages(), 2)

	tg.mu.Lock()
	tg.sendErr = nil
	tg.mu.Unlock()
	require.NoError(t, b.Deliver(context.Background(), models.ForwardCreated, snap))

	sent := tg.sentMessages()
	require.Len(t, sent, 3)
	assert.Equal(t, int64(-200), sent[2].(tgbotapi.MessageConfig).ChatID)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NotificationsSent))

	// A fully delivered notification is forgotten.
	require.NoError(t, b.Deliver(context.Background(), models.ForwardCreated, snap))
	assert.Len(t, tg.sentMessages(), 5)
}

func TestCallbackConfirmsReservation(t *testing.T) {
	b, tg, res, m := newTestBot(t)
	confirmed := pendingReservation()
	confirmed.Status = models.StatusConfirmed
	res.On("UpdateStatus", mock.Anything, "res-1", models.StatusConfirmed).Return(&confirmed, nil)

	b.processUpdate(context.Background(), callbackUpdate(staffChat, "confirm:res-1"))

	res.AssertExpectations(t)
	sent := tg.sentMessages()
	require.Len(t, sent, 1)
	edit, ok := sent[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 42, edit.MessageID)
	assert.Contains(t, edit.Text, "@maria")
	require.NotNil(t, edit.ReplyMarkup)
	assert.Equal(t, "complete:res-1", *edit.ReplyMarkup.InlineKeyboard[0][0].CallbackData)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.StatusChanges.WithLabelValues("confirmed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.UpdatesProcessed.WithLabelValues("callback")))
}

func TestCallbackFromUnknownChatIsIgnored(t *testing.T) {
	b, tg, res, _ := newTestBot(t)

	b.processUpdate(context.Background(), callbackUpdate(999, "confirm:res-1"))

	res.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, tg.sentMessages())
	assert.Len(t, tg.requests, 1)
}

func TestCallbackErrors(t *testing.T) {
	b, tg, res, _ := newTestBot(t)
	res.On("UpdateStatus", mock.Anything, "res-1", models.StatusCompleted).
		Return(nil, service.ErrInvalidTransition)

	b.processUpdate(context.Background(), callbackUpdate(staffChat, "complete:res-1"))
	b.processUpdate(context.Background(), callbackUpdate(staffChat, "archive:res-1"))

	assert.Empty(t, tg.sentMessages())
	require.Len(t, tg.requests, 2)
	first := tg.requests[0].(tgbotapi.CallbackConfig)
	assert.Contains(t, first.Text, "can no longer")
	second := tg.requests[1].(tgbotapi.CallbackConfig)
	assert.Contains(t, second.Text, "Unknown action")
}

func TestGetErrorMessage(t *testing.T) {
	b, _, _, _ := newTestBot(t)
	assert.Empty(t, b.getErrorMessage(nil))
	assert.Contains(t, b.getErrorMessage(database.ErrNotFound), "not found")
	assert.Contains(t, b.getErrorMessage(errors.New("boom")), "Something went wrong")
}

func TestTodayCommand(t *testing.T) {
	b, tg, res, _ := newTestBot(t)
	today := b.today()
	list := []models.Reservation{pendingReservation()}
	res.On("ListBetween", mock.Anything, "r1", today, today).Return(list, nil)

	b.processUpdate(context.Background(), commandUpdate(staffChat, "/today r1", "today"))

	res.AssertExpectations(t)
	msg := tg.sentMessages()[0].(tgbotapi.MessageConfig)
	assert.Contains(t, msg.Text, "19:00 · 4 · Ana (pending)")
}

func TestPendingCommandSendsButtons(t *testing.T) {
	b, tg, res, _ := newTestBot(t)
	res.On("List", mock.Anything, "r1", models.ReservationFilter{Status: models.StatusPending}).
		Return([]models.Reservation{pendingReservation()}, nil)

	b.processUpdate(context.Background(), commandUpdate(staffChat, "/pending r1", "pending"))

	msg := tg.sentMessages()[0].(tgbotapi.MessageConfig)
	_, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.True(t, ok)
}

func TestStatsCommand(t *testing.T) {
	b, tg, res, _ := newTestBot(t)
	res.On("Dashboard", mock.Anything, "r1", "").Return(&models.DashboardStats{
		Date: "2026-10-14", TodaysGuests: 12, TodaysBookings: 3, PendingRequests: 2, ConfirmedToday: 1,
	}, nil)

	b.processUpdate(context.Background(), commandUpdate(staffChat, "/stats r1", "stats"))

	msg := tg.sentMessages()[0].(tgbotapi.MessageConfig)
	assert.Contains(t, msg.Text, "Guests today: 12")
	assert.Contains(t, msg.Text, "Pending requests: 2")
}

func TestCommandsRequireStaffAndArguments(t *testing.T) {
	b, tg, res, _ := newTestBot(t)

	b.processUpdate(context.Background(), commandUpdate(999, "/today r1", "today"))
	b.processUpdate(context.Background(), commandUpdate(staffChat, "/today", "today"))
	b.processUpdate(context.Background(), commandUpdate(999, "/help", "help"))

	res.AssertNotCalled(t, "ListBetween", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	sent := tg.sentMessages()
	require.Len(t, sent, 3)
	assert.Contains(t, sent[0].(tgbotapi.MessageConfig).Text, "not registered")
	assert.Contains(t, sent[1].(tgbotapi.MessageConfig).Text, "Usage: /today")
	assert.Contains(t, sent[2].(tgbotapi.MessageConfig).Text, "/pending")
}

func TestBotStartStopsOnCancel(t *testing.T) {
	b, tg, _, _ := newTestBot(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		b.Start(ctx)
		close(done)
	}()

	tg.updatesChan <- commandUpdate(staffChat, "/start", "start")
	require.Eventually(t, func() bool { return len(tg.sentMessages()) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}
}

func TestProcessUpdateRecoversPanic(t *testing.T) {
	b, _, _, m := newTestBot(t)
	b.reservations = nil

	assert.NotPanics(t, func() {
		b.processUpdate(context.Background(), callbackUpdate(staffChat, "confirm:res-1"))
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ErrorsTotal))
}

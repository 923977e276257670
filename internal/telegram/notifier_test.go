package telegram

import (
	"errors"
	"testing"
	"time"

	"fixitfast/backend/internal/localization"
	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/scope"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSender is a mock implementation of the Sender interface
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func newLocalizer(t *testing.T) *localization.Localizer {
	t.Helper()
	l, err := localization.NewLocalizer("../localization")
	require.NoError(t, err)
	return l
}

func TestFormat_StatusChange(t *testing.T) {
	n := NewNotifier(nil, 42, newLocalizer(t), "en", scope.Unrestricted())

	text := n.Format(models.ComplaintEvent{
		Type:           models.EventEvidence,
		Title:          "Pothole (FC Road)",
		City:           "Pune",
		PreviousStatus: models.StatusAssigned,
		Status:         models.StatusInProgress,
		Note:           "Work started.",
	})

	assert.Contains(t, text, `Pothole \(FC Road\)`)
	assert.Contains(t, text, "Assigned → In Progress")
	assert.Contains(t, text, `Work started\.`)
}

func TestFormat_SkipsEventsWithoutStatusChange(t *testing.T) {
	n := NewNotifier(nil, 42, newLocalizer(t), "en", scope.Unrestricted())

	assert.Empty(t, n.Format(models.ComplaintEvent{Type: models.EventNoteAdded, Status: models.StatusAssigned}))
	assert.Empty(t, n.Format(models.ComplaintEvent{Type: models.EventEvidence, Status: models.StatusResolved}))
	assert.NotEmpty(t, n.Format(models.ComplaintEvent{Type: models.EventCreated, Status: models.StatusPending, Title: "x", City: "Pune"}))
}

func TestFormat_Localized(t *testing.T) {
	n := NewNotifier(nil, 42, newLocalizer(t), "hi", scope.Unrestricted())

	text := n.Format(models.ComplaintEvent{Type: models.EventStatus, Title: "x", PreviousStatus: models.StatusInProgress, Status: models.StatusResolved})

	assert.Contains(t, text, "हल हो गया")
}

func TestNewNotifier_UnknownLanguageFallsBack(t *testing.T) {
	n := NewNotifier(nil, 42, newLocalizer(t), "xx", scope.Unrestricted())
	assert.Equal(t, "en", n.Lang)
}

func TestWritePump_SendsAndSurvivesErrors(t *testing.T) {
	bot := new(MockSender)
	bot.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ParseMode == tgbotapi.ModeMarkdownV2
	})).Return(tgbotapi.Message{}, errors.New("flood wait")).Once()
	bot.On("Send", mock.Anything).Return(tgbotapi.Message{}, nil)

	n := NewNotifier(bot, 42, newLocalizer(t), "en", scope.Unrestricted())
	n.Run()

	n.Send <- models.ComplaintEvent{Type: models.EventCreated, ComplaintID: "c1", Title: "a", City: "Pune"}
	n.Send <- models.ComplaintEvent{Type: models.EventNoteAdded, ComplaintID: "c1"}
	n.Send <- models.ComplaintEvent{Type: models.EventStatus, ComplaintID: "c1", PreviousStatus: models.StatusPending, Status: models.StatusRejected}
	n.Close()

	select {
	case <-n.Done():
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop")
	}
	bot.AssertNumberOfCalls(t, "Send", 2)
}

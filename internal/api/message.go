package api

import (
	"net/http"

	"github.com/chatzone/chatzone/internal/middleware"
	"github.com/chatzone/chatzone/internal/realtime"
	"github.com/chatzone/chatzone/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type MessageHandler struct {
	repo      repository.MessageRepository
	publisher realtime.Publisher
	logger    *zap.Logger
}

func NewMessageHandler(repo repository.MessageRepository, publisher realtime.Publisher, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{repo: repo, publisher: publisher, logger: logger}
}

type createMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id" binding:"required"`
	Text       string    `json:"text" binding:"required"`
}

// Create handles POST /v1/messages
//
// Persists the message, then publishes the INSERT change event. The
// sender's own view is populated by the subscription echo of this event,
// same as the receiver's; one delivery path for both sides.
func (h *MessageHandler) Create(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	senderID := middleware.GetUserID(c)

	msg, err := h.repo.Create(c.Request.Context(), senderID, req.ReceiverID, req.Text)
	if err != nil {
		h.logger.Error("failed to create message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create message"})
		return
	}

	if err := h.publisher.Publish(c.Request.Context(), realtime.MessageInserted(*msg)); err != nil {
		// Committed but not announced: subscribers catch it on their next
		// bulk load. Log and still return the row.
		h.logger.Error("failed to publish message insert", zap.Error(err))
	}

	c.JSON(http.StatusCreated, msg)
}

// List handles GET /v1/messages?with=<user-id>
//
// Returns the conversation between the caller and the named counterpart,
// in either direction, ascending by creation time.
func (h *MessageHandler) List(c *gin.Context) {
	counterpartID, err := uuid.Parse(c.Query("with"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing 'with' user ID"})
		return
	}
	selfID := middleware.GetUserID(c)

	messages, err := h.repo.ListConversation(c.Request.Context(), selfID, counterpartID)
	if err != nil {
		h.logger.Error("failed to list conversation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}

	c.JSON(http.StatusOK, messages)
}

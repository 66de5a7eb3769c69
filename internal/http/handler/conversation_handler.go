package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/service"
)

type ConversationHandler struct {
	conversationService *service.ConversationService
	logger              *zap.Logger
}

func NewConversationHandler(conversationService *service.ConversationService, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		logger:              logger,
	}
}

// List godoc
// @Summary List my conversations
// @Tags Conversations
// @Produce json
// @Success 200 {array} domain.ConversationDTO
// @Security BearerAuth
// @Router /conversations [get]
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	convs, err := h.conversationService.ListForUser(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "list conversations")
		return
	}
	respondJSON(w, http.StatusOK, convs)
}

// Get godoc
// @Summary Get a conversation with its messages
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Param last query int false "Only the last n messages"
// @Success 200 {object} domain.ConversationDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /conversations/{id} [get]
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, last, ok := h.parseConversationRequest(w, r)
	if !ok {
		return
	}

	conv, err := h.conversationService.Get(r.Context(), id, last)
	if err != nil {
		handleServiceError(w, h.logger, err, "get conversation")
		return
	}
	respondJSON(w, http.StatusOK, conv)
}

// ListMessages godoc
// @Summary List a conversation's messages
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Param last query int false "Only the last n messages"
// @Success 200 {array} domain.MessageDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /conversations/{id}/messages [get]
func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, last, ok := h.parseConversationRequest(w, r)
	if !ok {
		return
	}

	msgs, err := h.conversationService.ListMessages(r.Context(), id, last)
	if err != nil {
		handleServiceError(w, h.logger, err, "list messages")
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

// PostMessage godoc
// @Summary Post a message
// @Tags Conversations
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param request body domain.PostMessageRequest true "Message"
// @Success 201 {object} domain.MessageDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /conversations/{id}/messages [post]
func (h *ConversationHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "conversation ID")
	if !ok {
		return
	}

	var req domain.PostMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	msg, err := h.conversationService.AddMessage(r.Context(), id, req.Content)
	if err != nil {
		handleServiceError(w, h.logger, err, "post message")
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

// MarkRead godoc
// @Summary Mark the messages addressed to me as read
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} map[string]int64
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /conversations/{id}/read [post]
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "conversation ID")
	if !ok {
		return
	}

	n, err := h.conversationService.MarkRead(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "mark messages read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"marked": n})
}

func (h *ConversationHandler) parseConversationRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, int, bool) {
	id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "conversation ID")
	if !ok {
		return uuid.Nil, 0, false
	}

	last := 0
	if raw := r.URL.Query().Get("last"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondWithError(w, http.StatusBadRequest, "last must be a non-negative integer")
			return uuid.Nil, 0, false
		}
		last = n
	}
	return id, last, true
}

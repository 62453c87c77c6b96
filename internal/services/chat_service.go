package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mechanical_shop/internal/models"
	"mechanical_shop/internal/repository"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	chatHistoryWindow    = 10
	chatRecommendations  = 5
	defaultChatPageLimit = 50
)

type ChatReply struct {
	Message         string                  `json:"message"`
	Recommendations []models.ProductSummary `json:"recommendations"`
	MessageID       string                  `json:"messageId"`
}

type ChatHistory struct {
	Messages   []models.ChatMessage `json:"messages"`
	Pagination Pagination           `json:"pagination"`
}

// Recommender suggests catalog products for a free-text message.
type Recommender interface {
	Recommend(ctx context.Context, message string, limit int) ([]models.Product, error)
}

type ChatService interface {
	SendMessage(ctx context.Context, userID, message string) (*ChatReply, error)
	History(ctx context.Context, userID string, page, limit int) (*ChatHistory, error)
}

type chatService struct {
	store       repository.Store
	assistant   Assistant
	recommender Recommender
	timeout     time.Duration
}

func NewChatService(store repository.Store, assistant Assistant, recommender Recommender, timeout time.Duration) ChatService {
	return &chatService{
		store:       store,
		assistant:   assistant,
		recommender: recommender,
		timeout:     timeout,
	}
}

// SendMessage stores the user's message before asking the assistant, so it
// survives an assistant failure.
func (s *chatService) SendMessage(ctx context.Context, userID, message string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	history, err := s.store.ChatMessages().Recent(ctx, userID, chatHistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	userMessage := &models.ChatMessage{UserID: userID, Message: message, IsUser: true}
	if err := s.store.ChatMessages().Create(ctx, userMessage); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	aiCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.assistant.Reply(aiCtx, history, message)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id":  userID,
			"provider": s.assistant.Provider(),
		}).Error("Assistant request failed")
		return nil, fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}

	recommendations := []models.ProductSummary{}
	if s.recommender != nil {
		products, err := s.recommender.Recommend(ctx, message, chatRecommendations)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Failed to compute recommendations")
		}
		for i := range products {
			recommendations = append(recommendations, products[i].Summary())
		}
	}

	aiMessage := &models.ChatMessage{
		UserID:  userID,
		Message: reply,
		IsUser:  false,
		Metadata: &models.ChatContext{
			Recommendations: recommendations,
			Provider:        s.assistant.Provider(),
		},
	}
	if err := s.store.ChatMessages().Create(ctx, aiMessage); err != nil {
		return nil, fmt.Errorf("failed to save reply: %w", err)
	}

	return &ChatReply{
		Message:         reply,
		Recommendations: recommendations,
		MessageID:       aiMessage.ID,
	}, nil
}

func (s *chatService) History(ctx context.Context, userID string, page, limit int) (*ChatHistory, error) {
	p := pageRequest(page, limit, defaultChatPageLimit)

	var (
		messages []models.ChatMessage
		total    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		messages, err = s.store.ChatMessages().ListByUser(gctx, userID, p)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.ChatMessages().CountByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return &ChatHistory{Messages: messages, Pagination: newPagination(p, total)}, nil
}

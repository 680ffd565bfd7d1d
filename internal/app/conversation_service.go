package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"beifahrer/internal/model"
	"beifahrer/internal/repository"
)

var (
	ErrChatNotFound = errors.New("chat not found")
	ErrMessageEmpty = errors.New("message content is empty")
)

// ConversationStore owns chat transcripts. All mutating operations persist
// durably before returning. Get returns (nil, nil) for unknown ids.
type ConversationStore interface {
	Create(chat *model.ChatSession) error
	Get(id string) (*model.ChatSession, error)
	GetOrCreate(id, defaultName string) (*model.ChatSession, bool, error)
	AppendTurn(id string, userMsg, assistantMsg model.Message) (*model.ChatSession, error)
	Exists(id string) (bool, error)
}

// ReplyGenerator produces the assistant reply; it never fails (fail-soft).
type ReplyGenerator interface {
	Generate(ctx context.Context, userMessage string, history model.History) string
}

// TurnEventPublisher forwards per-message audit events to the async worker.
type TurnEventPublisher interface {
	Publish(ctx context.Context, event model.TurnEvent) error
}

// HistoryCache is the optional read-path cache for transcripts.
type HistoryCache interface {
	GetHistory(ctx context.Context, chatID string) (model.History, bool, error)
	SetHistory(ctx context.Context, chatID string, history model.History) error
	DeleteHistory(ctx context.Context, chatID string) error
	MarkDirty(ctx context.Context, chatID string) error
	IsDirty(ctx context.Context, chatID string) (bool, error)
}

// ConversationService orchestrates the per-turn protocol: retrieve-grounded
// generation followed by a durable append of the (user, assistant) pair.
type ConversationService struct {
	store        ConversationStore
	registry     *SessionRegistry
	generator    ReplyGenerator
	publisher    TurnEventPublisher // optional
	historyCache HistoryCache       // optional
	locks        chatLocks
}

func NewConversationService(
	store ConversationStore,
	registry *SessionRegistry,
	generator ReplyGenerator,
	publisher TurnEventPublisher,
	historyCache HistoryCache,
) *ConversationService {
	return &ConversationService{
		store:        store,
		registry:     registry,
		generator:    generator,
		publisher:    publisher,
		historyCache: historyCache,
	}
}

// StartChat opens a new chat from its first user message. The reply is
// generated against an empty transcript, then the chat is created with both
// messages as initial history.
func (s *ConversationService) StartChat(ctx context.Context, firstMessage string) (*model.ChatSession, model.Message, error) {
	content := strings.TrimSpace(firstMessage)
	if content == "" {
		return nil, model.Message{}, ErrMessageEmpty
	}

	// Allocation runs before generation, so an exhausted id space fails the
	// request without spending a completion call.
	id, err := s.registry.Allocate()
	if err != nil {
		return nil, model.Message{}, err
	}

	userMsg := model.Message{Role: model.RoleUser, Content: content}
	assistantMsg := model.Message{
		Role:    model.RoleAssistant,
		Content: s.generator.Generate(ctx, content, nil),
	}

	// The registry's existence probe and the insert are not atomic; a lost
	// race surfaces as a duplicate-key rejection and we draw again.
	for attempt := 0; attempt < allocationAttempts; attempt++ {
		chat := &model.ChatSession{
			ID:      id,
			Name:    "Chat " + id,
			History: model.History{userMsg, assistantMsg},
		}
		err := s.store.Create(chat)
		if errors.Is(err, repository.ErrDuplicateChatID) {
			if id, err = s.registry.Allocate(); err != nil {
				return nil, model.Message{}, err
			}
			continue
		}
		if err != nil {
			return nil, model.Message{}, err
		}

		s.publishTurn(ctx, id, userMsg, assistantMsg)
		return chat, assistantMsg, nil
	}
	return nil, model.Message{}, ErrAllocationExhausted
}

// GetHistory returns the ordered transcript of an existing chat.
func (s *ConversationService) GetHistory(ctx context.Context, id string) (model.History, error) {
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, id)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, id); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	chat, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}

	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, id); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, id, chat.History)
		}
	}
	return chat.History, nil
}

// SendMessage runs one turn against an existing chat: generate a reply from
// the current transcript, then append the (user, assistant) pair. Turns on
// the same chat serialize on a per-id mutex so the reply is always grounded
// in the transcript it will be appended after; distinct chats proceed in
// parallel.
func (s *ConversationService) SendMessage(ctx context.Context, id, content string) (model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Message{}, ErrMessageEmpty
	}

	s.locks.lock(id)
	defer s.locks.unlock(id)

	chat, err := s.store.Get(id)
	if err != nil {
		return model.Message{}, err
	}
	if chat == nil {
		return model.Message{}, ErrChatNotFound
	}

	// History must be read before the append so the new turn never grounds
	// its own generation.
	userMsg := model.Message{Role: model.RoleUser, Content: content}
	assistantMsg := model.Message{
		Role:    model.RoleAssistant,
		Content: s.generator.Generate(ctx, content, chat.History),
	}

	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, id)
		_ = s.historyCache.DeleteHistory(ctx, id)
	}

	updated, err := s.store.AppendTurn(id, userMsg, assistantMsg)
	if err != nil {
		return model.Message{}, err
	}
	if updated == nil {
		return model.Message{}, ErrChatNotFound
	}

	s.publishTurn(ctx, id, userMsg, assistantMsg)
	return assistantMsg, nil
}

// publishTurn emits audit events for both messages of a turn. The transcript
// is already durable at this point, so failures are logged, not surfaced.
func (s *ConversationService) publishTurn(ctx context.Context, chatID string, messages ...model.Message) {
	if s.publisher == nil {
		return
	}
	for _, msg := range messages {
		event := model.TurnEvent{
			ID:        uuid.NewString(),
			ChatID:    chatID,
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.Printf("publish turn event failed for chat %s: %v", chatID, err)
		}
	}
}

// chatLocks hands out one mutex per chat id. Entries are refcounted and
// dropped once the last holder releases, so the map stays proportional to
// the number of chats with an in-flight turn, not to all chats ever seen.
type chatLocks struct {
	mu sync.Mutex
	m  map[string]*chatLock
}

type chatLock struct {
	sync.Mutex
	refs int
}

func (l *chatLocks) lock(id string) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*chatLock)
	}
	entry, ok := l.m[id]
	if !ok {
		entry = &chatLock{}
		l.m[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()
}

func (l *chatLocks) unlock(id string) {
	l.mu.Lock()
	entry := l.m[id]
	entry.refs--
	if entry.refs == 0 {
		delete(l.m, id)
	}
	l.mu.Unlock()

	entry.Unlock()
}

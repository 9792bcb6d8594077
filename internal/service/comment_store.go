package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"axiom-server/internal/models"
	"axiom-server/internal/repository"
)

const (
	collectionComments = "character_comments"
	orderFieldComments = "timestamp"
)

// Словари для анонимных имен посетителей. Совпадают с именами, которые
// сайт раздавал гостям с самого запуска виджета комментариев.
var (
	anonAdjectives = []string{"Cosmic", "Stellar", "Quantum", "Digital", "Cyber", "Neon", "Plasma", "Atomic", "Galactic", "Binary"}
	anonNouns      = []string{"Passenger", "Traveler", "Explorer", "Navigator", "Pilot", "Wanderer", "Observer", "Voyager", "Scout", "Crew"}
)

// CommentStoreDeps — зависимости хранилища комментариев.
type CommentStoreDeps struct {
	Connect Connector
	Cache   *repository.FileCache[models.Comment]
	Logger  *zap.Logger
}

// CommentStore владеет комментариями на страницах персонажей. Машина
// состояний та же, что у CommissionStore: подключение к удаленной базе
// при создании, безвозвратный откат на локальный кэш при любом сбое
// инициализации, компенсация отдельных записей.
type CommentStore struct {
	mu       sync.RWMutex
	comments []models.Comment
	mode     BackendMode

	remote repository.RemoteStore
	cache  *repository.FileCache[models.Comment]

	unsub     repository.Unsubscribe
	closeOnce sync.Once

	logger *zap.Logger
}

// NewCommentStore создает хранилище комментариев.
func NewCommentStore(ctx context.Context, deps CommentStoreDeps) *CommentStore {
	s := &CommentStore{
		comments: []models.Comment{},
		mode:     ModeLocal,
		cache:    deps.Cache,
		logger:   deps.Logger.Named("comment_store"),
	}

	if deps.Connect == nil {
		s.comments = s.cache.Load()
		return s
	}

	remote, err := deps.Connect(ctx)
	if err != nil {
		s.logger.Warn("Не удалось подключиться к удаленной базе, комментарии работают локально", zap.Error(err))
		s.comments = s.cache.Load()
		return s
	}

	docs, err := remote.List(ctx, collectionComments, orderFieldComments)
	if err != nil {
		s.logger.Warn("Не удалось загрузить комментарии, работаем локально", zap.Error(err))
		s.comments = s.cache.Load()
		return s
	}

	s.remote = remote
	s.mode = ModeRemote
	s.comments = commentsFromDocuments(docs)

	// Подписка живет до Close: контекст инициализации может нести дедлайн,
	// который не должен обрывать доставку снапшотов.
	unsub, err := remote.Subscribe(context.WithoutCancel(ctx), collectionComments, orderFieldComments, func(docs []repository.Document) {
		s.mu.Lock()
		s.comments = commentsFromDocuments(docs)
		s.mu.Unlock()
	})
	if err != nil {
		s.logger.Error("Не удалось установить подписку на комментарии", zap.Error(err))
	} else {
		s.unsub = unsub
	}

	s.logger.Info("Хранилище комментариев работает в удаленном режиме", zap.Int("comments", len(s.comments)))
	return s
}

// Close останавливает live-подписку.
func (s *CommentStore) Close() {
	s.closeOnce.Do(func() {
		if s.unsub != nil {
			s.unsub()
		}
	})
}

// Mode возвращает текущий режим работы хранилища комментариев.
func (s *CommentStore) Mode() BackendMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// ListComments возвращает комментарии персонажа, новые сверху.
func (s *CommentStore) ListComments(characterID string) []models.Comment {
	s.mu.RLock()
	out := make([]models.Comment, 0)
	for _, c := range s.comments {
		if c.CharacterID == characterID {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// AddComment публикует комментарий. Пустой текст — единственная причина
// отказа; пустые userID/userName заменяются сгенерированными, как это
// делал сам виджет для анонимных посетителей.
func (s *CommentStore) AddComment(ctx context.Context, characterID, userID, userName, text string) (models.Comment, error) {
	sanitized := models.SanitizeCommentText(text)
	if sanitized == "" {
		return models.Comment{}, models.ErrEmptyComment
	}
	if userID == "" {
		userID = fmt.Sprintf("user_%d", time.Now().UnixMilli())
	}
	if userName == "" {
		userName = AnonymousName()
	}

	comment := models.Comment{
		CharacterID: characterID,
		UserID:      userID,
		UserName:    userName,
		Text:        sanitized,
		Timestamp:   time.Now().UTC(),
	}

	if s.Mode() == ModeRemote {
		id, err := s.remote.Add(ctx, collectionComments, commentToFields(comment))
		if err == nil {
			comment.ID = id
			s.mu.Lock()
			s.comments = append(s.comments, comment)
			s.mu.Unlock()
			return comment, nil
		}
		s.logger.Error("Не удалось записать комментарий в удаленную базу, сохраняем локально", zap.Error(err))
	}

	comment.ID = newLocalID()
	s.mu.Lock()
	s.comments = append(s.comments, comment)
	s.mu.Unlock()
	s.saveLocally()
	return comment, nil
}

// DeleteComment убирает комментарий (модерация); false для неизвестного id.
func (s *CommentStore) DeleteComment(ctx context.Context, id string) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.comments {
		if s.comments[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.comments = append(s.comments[:idx], s.comments[idx+1:]...)
	s.mu.Unlock()

	if s.Mode() == ModeRemote {
		if err := s.remote.Delete(ctx, collectionComments, id); err != nil {
			s.logger.Error("Не удалось удалить комментарий из удаленной базы, фиксируем локально", zap.Error(err))
			s.saveLocally()
		}
	} else {
		s.saveLocally()
	}
	return true
}

// AnonymousName собирает случайное отображаемое имя для гостя.
func AnonymousName() string {
	adj := anonAdjectives[rand.Intn(len(anonAdjectives))]
	noun := anonNouns[rand.Intn(len(anonNouns))]
	return adj + noun
}

func commentsFromDocuments(docs []repository.Document) []models.Comment {
	out := make([]models.Comment, 0, len(docs))
	for _, doc := range docs {
		out = append(out, commentFromDocument(doc))
	}
	return out
}

func (s *CommentStore) saveLocally() {
	s.mu.RLock()
	snapshot := make([]models.Comment, len(s.comments))
	copy(snapshot, s.comments)
	s.mu.RUnlock()
	if err := s.cache.Save(snapshot); err != nil {
		s.logger.Error("Не удалось сохранить комментарии в локальный кэш", zap.Error(err))
	}
}

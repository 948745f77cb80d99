package app

import (
	"context"

	"ragdesk/internal/model"
)

// TurnReader reads persisted chat turns.
type TurnReader interface {
	ListBySessionID(sessionID string, limit int) ([]model.ChatTurn, error)
}

// HistoryService serves persisted session history, reading through the redis
// cache when it is clean and refilling it from mysql otherwise.
type HistoryService struct {
	turns TurnReader
	cache HistoryCache
}

func NewHistoryService(turns TurnReader, cache HistoryCache) *HistoryService {
	return &HistoryService{turns: turns, cache: cache}
}

func (s *HistoryService) GetHistory(ctx context.Context, sessionID string, limit int) ([]model.ChatTurn, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}

	if s.cache != nil {
		dirty, err := s.cache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.cache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return trimTurns(cached, limit), nil
			}
		}
	}

	turns, err := s.turns.ListBySessionID(sessionID, limit)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if dirty, dirtyErr := s.cache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.cache.SetHistory(ctx, sessionID, turns)
		}
	}
	return turns, nil
}

func trimTurns(turns []model.ChatTurn, limit int) []model.ChatTurn {
	if limit <= 0 || limit >= len(turns) {
		return turns
	}
	return turns[len(turns)-limit:]
}

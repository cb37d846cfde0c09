package store

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/cbam/internal/draft/domain"
)

const (
	redisKeyPrefix = "cbam:draft:"
	redisTTL       = 30 * 24 * time.Hour
)

// Redis stores drafts under cbam:draft:<slot>; every save renews the TTL.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Save(ctx context.Context, slot string, d domain.FormDraft) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	data, err := Encode(d)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKeyPrefix+slot, data, redisTTL).Err()
}

func (r *Redis) Load(ctx context.Context, slot string) (domain.FormDraft, error) {
	if err := checkSlot(slot); err != nil {
		return domain.FormDraft{}, err
	}
	data, err := r.client.Get(ctx, redisKeyPrefix+slot).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.FormDraft{}, domain.ErrDraftAbsent
	}
	if err != nil {
		return domain.FormDraft{}, err
	}
	return Decode(data)
}

func (r *Redis) Clear(ctx context.Context, slot string) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	return r.client.Del(ctx, redisKeyPrefix+slot).Err()
}

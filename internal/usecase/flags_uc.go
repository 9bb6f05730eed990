package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"ai-content-boost/internal/domain"
	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/repository"
	"ai-content-boost/internal/domain/ports/usecase"
)

// Compile-time check
var _ usecase.Flags = (*FlagsUseCase)(nil)

var knownFlags = map[string]bool{
	model.FlagForceDegraded: true,
}

// FlagsUseCase reads and writes operator toggles. Writes reach workers via
// the flag poller within one poll interval.
type FlagsUseCase struct {
	flags repository.FlagRepository
	log   *zerolog.Logger
}

func NewFlagsUseCase(flags repository.FlagRepository, logger *zerolog.Logger) *FlagsUseCase {
	flagLog := logger.With().Str("component", "FlagsUseCase").Logger()
	return &FlagsUseCase{flags: flags, log: &flagLog}
}

func (uc *FlagsUseCase) Get(ctx context.Context, key string) (*model.AdminFlag, error) {
	if !knownFlags[key] {
		return nil, fmt.Errorf("%w: unknown flag %q", domain.ErrInvalidArgument, key)
	}
	return uc.flags.Find(ctx, repository.NoTX, key)
}

func (uc *FlagsUseCase) Set(ctx context.Context, key, value string) (*model.AdminFlag, error) {
	if !knownFlags[key] {
		return nil, fmt.Errorf("%w: unknown flag %q", domain.ErrInvalidArgument, key)
	}
	flag, err := uc.flags.Set(ctx, repository.NoTX, key, value)
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("flag", key).Str("value", value).Msg("admin flag updated")
	return flag, nil
}

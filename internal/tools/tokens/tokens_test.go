package tokens_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ptkach/nomulus/internal/platform/logger"
	"github.com/ptkach/nomulus/internal/registry/models"
	"github.com/ptkach/nomulus/internal/registry/store"
	"github.com/ptkach/nomulus/internal/registry/store/memory"
	"github.com/ptkach/nomulus/internal/tools/tokens"
	dErrors "github.com/ptkach/nomulus/pkg/domain-errors"
)

var now = time.Date(2029, 6, 1, 12, 0, 0, 0, time.UTC)

type TokensSuite struct {
	suite.Suite
	backend *memory.Store
	tool    *tokens.Tool
	ctx     context.Context
}

func TestTokensSuite(t *testing.T) {
	suite.Run(t, new(TokensSuite))
}

func (s *TokensSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = memory.New()
	manager := store.NewManager(s.backend, store.WithClock(func() time.Time { return now }))
	s.tool = tokens.New(manager, tokens.WithLogger(logger.Discard()))

	redeemed := models.HistoryEntryID{RepoID: "1-TLD", RevisionID: 7}
	s.backend.Seed(
		&models.AllocationToken{Token: "promo-a", Type: models.TokenUnlimitedUse},
		&models.AllocationToken{Token: "promo-b", Type: models.TokenSingleUse, RedemptionHistoryID: &redeemed},
		&models.AllocationToken{Token: "promo-c", Type: models.TokenSingleUse, AllowedTLDs: []string{"tld"}},
		&models.AllocationToken{Token: "other", Type: models.TokenUnlimitedUse},
	)
}

func (s *TokensSuite) token(id string) (*models.AllocationToken, bool) {
	for _, e := range s.backend.Snapshot(models.KindAllocationToken) {
		if tok := e.(*models.AllocationToken); tok.Token == id {
			return tok, true
		}
	}
	return nil, false
}

func (s *TokensSuite) TestSelectionRules() {
	tests := []struct {
		name string
		sel  tokens.Selection
		code dErrors.Code
	}{
		{name: "neither", sel: tokens.Selection{}, code: dErrors.CodeBadRequest},
		{name: "both", sel: tokens.Selection{Tokens: []string{"promo-a"}, Prefix: tokens.ByPrefix("promo").Prefix}, code: dErrors.CodeBadRequest},
		{name: "blank prefix", sel: tokens.ByPrefix(" "), code: dErrors.CodeBadRequest},
		{name: "nonexistent token", sel: tokens.ByTokens("promo-a", "missing"), code: dErrors.CodeNotFound},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.tool.Delete(s.ctx, tt.sel, false)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, tt.code), "got %v", err)
		})
	}
	s.Len(s.backend.Snapshot(models.KindAllocationToken), 4, "failed selections change nothing")
}

func (s *TokensSuite) TestDeleteByPrefixSkipsRedeemed() {
	res, err := s.tool.Delete(s.ctx, tokens.ByPrefix("promo-"), false)
	s.Require().NoError(err)

	s.Equal([]string{"promo-a", "promo-c"}, res.Changed)
	s.Equal([]string{"promo-b"}, res.Skipped)
	_, ok := s.token("promo-a")
	s.False(ok)
	_, ok = s.token("promo-b")
	s.True(ok)
	_, ok = s.token("other")
	s.True(ok)
}

func (s *TokensSuite) TestDeleteDryRun() {
	res, err := s.tool.Delete(s.ctx, tokens.ByTokens("promo-a", "other"), true)
	s.Require().NoError(err)

	s.True(res.DryRun)
	s.Equal([]string{"promo-a", "other"}, res.Changed)
	s.Len(s.backend.Snapshot(models.KindAllocationToken), 4)
}

func (s *TokensSuite) TestUpdateRestrictions() {
	registrars := []string{"TheRegistrar"}
	tlds := []string{}
	res, err := s.tool.Update(s.ctx, tokens.ByTokens("promo-a", "promo-c"), tokens.Update{
		AllowedRegistrars: &registrars,
		AllowedTLDs:       &tlds,
	}, false)
	s.Require().NoError(err)
	s.Equal([]string{"promo-a", "promo-c"}, res.Changed)

	for _, id := range res.Changed {
		tok, ok := s.token(id)
		s.Require().True(ok)
		s.Equal([]string{"TheRegistrar"}, tok.AllowedRegistrars)
		s.Empty(tok.AllowedTLDs)
		s.Equal(now, tok.UpdateTime)
	}
	other, _ := s.token("other")
	s.Empty(other.AllowedRegistrars)
}

func (s *TokensSuite) TestUpdateEndsPromotions() {
	ended := &models.AllocationToken{Token: "promo-ended", Type: models.TokenUnlimitedUse}
	ended.SetStatusTransitions([]models.StatusTransition{
		{At: models.StartOfTime, Status: models.TokenNotStarted},
		{At: now.AddDate(0, -2, 0), Status: models.TokenValid},
		{At: now.AddDate(0, -1, 0), Status: models.TokenEnded},
	})
	s.backend.Seed(ended)

	res, err := s.tool.Update(s.ctx, tokens.ByPrefix("promo-"), tokens.Update{EndPromotion: true}, false)
	s.Require().NoError(err)

	s.Equal([]string{"promo-a", "promo-b", "promo-c"}, res.Changed)
	s.Equal([]string{"promo-ended"}, res.Skipped)
	tok, _ := s.token("promo-a")
	s.Equal(models.TokenCancelled, tok.StatusAt(now))
}

func (s *TokensSuite) TestUpdateDryRun() {
	res, err := s.tool.Update(s.ctx, tokens.ByTokens("promo-a"), tokens.Update{EndPromotion: true}, true)
	s.Require().NoError(err)

	s.Equal([]string{"promo-a"}, res.Changed)
	tok, _ := s.token("promo-a")
	s.Equal(models.TokenValid, tok.StatusAt(now))
}

func (s *TokensSuite) TestUpdateNeedsChanges() {
	_, err := s.tool.Update(s.ctx, tokens.ByTokens("promo-a"), tokens.Update{}, false)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

package repository

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rookgm/marinapay/internal/repository/postgres"
)

// Sequence names are built from the season label, which must stay a pure
// year pair to keep the identifier injection-safe.
var stickerSeasonPattern = regexp.MustCompile(`^\d{4}_\d{4}$`)

// StickerRepository hands out winter storage sticker numbers. Each season
// has its own Postgres sequence, so numbers are gapless-enough and never
// reused within a season even across concurrent batch runs.
type StickerRepository struct {
	db *postgres.DB
}

// NewStickerRepository creates new StickerRepository instance
func NewStickerRepository(db *postgres.DB) *StickerRepository {
	return &StickerRepository{db: db}
}

// NextStickerNumber returns the next number of the season's sequence.
// The season label has the form "2020_2021".
func (sr *StickerRepository) NextStickerNumber(ctx context.Context, season string) (int, error) {
	if !stickerSeasonPattern.MatchString(season) {
		return 0, fmt.Errorf("invalid sticker season %q", season)
	}

	var number int
	query := fmt.Sprintf(`SELECT nextval('ws_stickers_%s')`, season)
	if err := sr.db.QueryRow(ctx, query).Scan(&number); err != nil {
		return 0, err
	}
	return number, nil
}

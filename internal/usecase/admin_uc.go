package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"telegram-onboarding-bot/internal/domain/model"
	"telegram-onboarding-bot/internal/domain/ports/repository"
	"telegram-onboarding-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

var _ AdminUseCase = (*adminUC)(nil)

// SummaryLimit is the chat platform's message length cap; longer summaries
// are truncated and the full data attached as CSV instead.
const SummaryLimit = 4096

// AdminUseCase exposes the operator-facing inspection operations.
type AdminUseCase interface {
	Summary(ctx context.Context) (string, error)
	ExportCSV(ctx context.Context) ([]byte, error)
}

type adminUC struct {
	records repository.RecordRepository
	log     *zerolog.Logger
}

func NewAdminUseCase(records repository.RecordRepository, logger *zerolog.Logger) *adminUC {
	return &adminUC{records: records, log: logger}
}

// Summary renders a human-readable listing of all completed onboardings,
// truncated to SummaryLimit characters.
func (a *adminUC) Summary(ctx context.Context) (string, error) {
	defer logging.TraceDuration(a.log, "AdminUC.Summary")()

	recs, err := a.records.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("list records: %w", err)
	}
	if len(recs) == 0 {
		return "No completed onboardings yet.", nil
	}

	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Completed onboardings: %d\n\n", len(recs)))
	for _, r := range recs {
		line := fmt.Sprintf("• %s (%d): %s | %s | %s\n",
			displayName(r), r.TelegramID, r.Country, r.InterestsJoined(), r.PlatformsJoined())
		sb.WriteString(line)
	}

	out := sb.String()
	if len(out) > SummaryLimit {
		const marker = "\n… truncated, see attached export"
		cut := SummaryLimit - len(marker)
		// Back up to a rune boundary; a byte-offset cut can split a
		// multi-byte character and the chat API rejects invalid UTF-8.
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut] + marker
	}
	return out, nil
}

// ExportCSV dumps every record with the full column set.
func (a *adminUC) ExportCSV(ctx context.Context) ([]byte, error) {
	defer logging.TraceDuration(a.log, "AdminUC.ExportCSV")()

	recs, err := a.records.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{
		"Telegram ID", "Username", "Country", "Interests", "Platforms",
		"App Link", "Full Name", "Completed On",
	}); err != nil {
		return nil, err
	}
	for _, r := range recs {
		completed := ""
		if !r.CompletedAt.IsZero() {
			completed = r.CompletedAt.Format("2006-01-02 15:04:05")
		}
		if err := w.Write([]string{
			strconv.FormatInt(r.TelegramID, 10),
			r.Username,
			r.Country,
			r.InterestsJoined(),
			r.PlatformsJoined(),
			r.AppLink,
			r.FullName,
			completed,
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func displayName(r *model.UserRecord) string {
	if r.FullName != "" {
		return r.FullName
	}
	if r.Username != "" {
		return "@" + r.Username
	}
	return "unknown"
}

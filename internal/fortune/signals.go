package fortune

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SignalProvider renders the deterministic profile block for a subject. The
// block is embedded verbatim in the debate payload.
type SignalProvider interface {
	Signals(ctx context.Context, s Subject, now time.Time) (string, error)
}

// ProfileSignals renders the basic birth information and the current time.
// Chart calculation is left to the models.
type ProfileSignals struct{}

// Signals implements SignalProvider.
func (ProfileSignals) Signals(_ context.Context, s Subject, now time.Time) (string, error) {
	now = now.In(Location)

	var sb strings.Builder
	sb.WriteString("1. 基础信息\n")
	fmt.Fprintf(&sb, "性别: %s\n", s.NormalizedGender())
	fmt.Fprintf(&sb, "公历: %d年%d月%d日%02d:%02d (UTC+8)\n", s.Year, s.Month, s.Day, s.Hour, s.Minute)
	sb.WriteString("\n")
	sb.WriteString("2. 当前时间（以运行时系统时间为准）\n")
	fmt.Fprintf(&sb, "当前公历时间: %d年%d月%d日 %02d:%02d:%02d (UTC+8)\n",
		now.Year(), int(now.Month()), now.Day(), now.Hour(), now.Minute(), now.Second())
	return sb.String(), nil
}

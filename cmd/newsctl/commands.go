package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/Hafiz-Al-Shams/news-nexus/internal/bootstrap"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/ports"
)

// runGenerate warms both bulletin stages so the next API caller is served from cache.
func runGenerate(ctx context.Context, out io.Writer, svc ports.BulletinService, identity string) error {
	view, err := svc.Latest(ctx, identity)
	if err != nil {
		return fmt.Errorf("generate bulletin: %w", err)
	}
	cards, err := svc.Expand(ctx, identity, view.Bulletin.Bullets)
	if err != nil {
		return fmt.Errorf("expand bulletin: %w", err)
	}
	fmt.Fprintf(out, "bulletin %s: %d bullets, %d cards (fingerprint %s)\n",
		view.Bulletin.ID, len(view.Bulletin.Bullets), len(cards.Cards), cards.Fingerprint)
	if view.FromCache {
		fmt.Fprintln(out, "stage 1 was already cached")
	}
	return nil
}

func runSend(ctx context.Context, out io.Writer, svc ports.BulletinService, mailer ports.DigestMailer, identity, to string) error {
	view, err := svc.Latest(ctx, identity)
	if err != nil {
		return fmt.Errorf("load bulletin: %w", err)
	}
	cards, err := svc.Expand(ctx, identity, view.Bulletin.Bullets)
	if err != nil {
		return fmt.Errorf("expand bulletin: %w", err)
	}
	if err := mailer.SendBulletinDigest(ctx, to, view.Bulletin, cards.Cards); err != nil {
		return err
	}
	fmt.Fprintf(out, "sent bulletin %s to %s\n", view.Bulletin.ID, to)
	return nil
}

func runQuotaShow(ctx context.Context, out io.Writer, svc ports.QuotaService, identity string, limits map[string]quota.Limits) error {
	c, err := svc.Peek(ctx, identity)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "identity %s\n", c.Identity)
	fmt.Fprintf(out, "window  %d used, resets %s\n", c.WindowCount, c.WindowResetAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "daily   %d used, resets %s\n", c.DailyCount, c.DailyResetAt.Format("2006-01-02 15:04:05 MST"))

	names := make([]string, 0, len(limits))
	for name := range limits {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LIMITS\tWINDOW LEFT\tDAILY LEFT")
	for _, name := range names {
		w, d := c.Remaining(limits[name])
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, remaining(w, limits[name].WindowMax), remaining(d, limits[name].DailyMax))
	}
	return tw.Flush()
}

func remaining(left, limit int) string {
	if left < 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d/%d", left, limit)
}

func limitSets(app *bootstrap.App) map[string]quota.Limits {
	return map[string]quota.Limits{"news": app.NewsLimits, "ai": app.AILimits}
}

package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/pkg/utils"
)

const consoleSender = "console"

// ConsoleReader feeds local terminal lines into the aggregator. Console
// input always carries broadcaster privilege, so the device owner can run
// moderation commands without opening chat.
type ConsoleReader struct {
	agg    *Aggregator
	in     io.Reader
	logger *zap.SugaredLogger
}

// NewConsoleReader wraps the given reader, normally os.Stdin.
func NewConsoleReader(agg *Aggregator, in io.Reader, logger *zap.SugaredLogger) *ConsoleReader {
	return &ConsoleReader{
		agg:    agg,
		in:     in,
		logger: logger,
	}
}

// Run reads lines until EOF or until the input stream closes. EOF is a
// normal exit: the process keeps serving chat with no console attached.
func (c *ConsoleReader) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		line := utils.SanitizeMessage(scanner.Text())
		if line == "" {
			continue
		}

		event := domain.InputEvent{
			Origin:  domain.OriginConsole,
			Sender:  consoleSender,
			Display: consoleSender,
			Role:    domain.RoleBroadcaster,
			Text:    line,
		}
		if err := c.agg.Submit(ctx, event); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading console input: %w", err)
	}
	c.logger.Debugw("console input reached EOF")
	return nil
}

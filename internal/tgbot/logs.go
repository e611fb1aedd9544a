package tgbot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

func (r *Router) sendLogs(ctx context.Context, cmd Command, p *progress) error {
	logFile := r.Config.LogFile()
	fileInfo, err := os.Stat(logFile)
	if err != nil {
		if os.IsNotExist(err) {
			return refusal("Log file does not exist: <code>" + filepath.Base(logFile) + "</code>")
		}
		return err
	}
	if fileInfo.IsDir() {
		return refusal("Log path is a directory.")
	}
	if fileInfo.Size() == 0 {
		return refusal("Log file is empty.")
	}

	p.step(ctx, "❯❯")
	caption := fmt.Sprintf("%s · %s", filepath.Base(logFile), humanize.Bytes(uint64(fileInfo.Size())))
	if err := r.Chat.SendFile(ctx, cmd.Chat, logFile, caption); err != nil {
		r.log.Warn("Upload log file", zap.String("path", logFile), zap.Error(err))
		return err
	}
	return p.set(ctx, "Log file sent.")
}

package host

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/1ureka/nexremote/internal/protocol"
)

func (c *client) handleMedia(ctx context.Context, m protocol.MediaControl) {
	c.mu.Lock()
	if c.media.Title == "" {
		c.media = protocol.MediaInfo{Title: "Synthetic Track", Artist: "NexRemote", Duration: 240, Volume: 50}
	}
	switch m.Action {
	case "play":
		c.media.IsPlaying = true
	case "pause", "stop":
		c.media.IsPlaying = false
	case "play_pause":
		c.media.IsPlaying = !c.media.IsPlaying
	case "volume":
		c.media.Volume = min(max(m.Value, 0), 100)
	case "mute_toggle":
		if c.media.Volume > 0 {
			c.media.Volume = 0
		} else {
			c.media.Volume = 50
		}
	case "seek":
		c.media.Position = min(max(m.Position, 0), c.media.Duration)
	case "next", "previous":
		c.media.Position = 0
	}
	info := c.media
	c.mu.Unlock()

	c.reply(ctx, info)
}

// root is the synthetic filesystem the file explorer domain browses.
var root = map[string][]protocol.FileEntry{
	"/": {
		{Name: "Documents", Path: "/Documents", IsDirectory: true},
		{Name: "Pictures", Path: "/Pictures", IsDirectory: true},
		{Name: "notes.txt", Path: "/notes.txt", Size: sizePtr(1024)},
	},
	"/Documents": {
		{Name: "report.pdf", Path: "/Documents/report.pdf", Size: sizePtr(204800)},
		{Name: "budget.xlsx", Path: "/Documents/budget.xlsx", Size: sizePtr(40960)},
	},
	"/Pictures": {
		{Name: "holiday.jpg", Path: "/Pictures/holiday.jpg", Size: sizePtr(3145728)},
	},
}

func sizePtr(n int64) *int64 { return &n }

func findEntry(p string) (protocol.FileEntry, bool) {
	for _, entries := range root {
		for _, e := range entries {
			if e.Path == p {
				return e, true
			}
		}
	}
	return protocol.FileEntry{}, false
}

func (c *client) handleFiles(ctx context.Context, m protocol.FileExplorer) {
	errorReply := func(msg string) {
		c.reply(ctx, protocol.ErrorReply{Domain: protocol.TypeFileExplorer, Message: msg})
	}

	switch m.Action {
	case "list":
		p := m.Path
		if p == "" {
			p = "/"
		}
		entries, ok := root[p]
		if !ok {
			errorReply("Path not found: " + p)
			return
		}
		c.reply(ctx, protocol.FileListing{Action: "list", Path: p, Files: entries})

	case "search":
		var hits []protocol.FileEntry
		q := strings.ToLower(m.Query)
		for _, entries := range root {
			for _, e := range entries {
				if q != "" && strings.Contains(strings.ToLower(e.Name), q) {
					hits = append(hits, e)
				}
			}
		}
		c.reply(ctx, protocol.FileListing{Action: "search", Path: m.Path, Query: m.Query, Files: hits})

	case "open", "properties", "copy_path":
		e, ok := findEntry(m.Path)
		if !ok {
			errorReply("Path not found: " + m.Path)
			return
		}
		res := protocol.FileResult{Path: e.Path, Name: path.Base(e.Path), IsDirectory: e.IsDirectory}
		switch m.Action {
		case "open":
			res.Action = "file_opened"
			if e.IsDirectory {
				res.Action = "folder_opened"
			}
		case "properties":
			res.Action = "properties"
			if e.Size != nil {
				res.Size = *e.Size
			}
			res.Modified = time.Now().Format(time.RFC3339)
		case "copy_path":
			res.Action = "path_copied"
		}
		c.reply(ctx, res)

	default:
		errorReply("Unknown action: " + m.Action)
	}
}

var processes = []protocol.ProcessInfo{
	{PID: 4, Name: "System", CPU: 0.1, Memory: 8 << 20},
	{PID: 1200, Name: "explorer.exe", CPU: 1.5, Memory: 120 << 20},
	{PID: 4242, Name: "nexremote-host", CPU: 3.2, Memory: 64 << 20},
}

func (c *client) handleTasks(ctx context.Context, m protocol.TaskManager) {
	switch m.Action {
	case "list_processes":
		c.reply(ctx, protocol.ProcessList{Processes: processes})
	case "end_process":
		for _, p := range processes {
			if p.PID == m.PID {
				c.reply(ctx, protocol.ProcessEnded{PID: p.PID, Name: p.Name})
				return
			}
		}
		c.reply(ctx, protocol.ErrorReply{Domain: protocol.TypeTaskManager, Message: fmt.Sprintf("No process with PID %d", m.PID)})
	case "system_info":
		c.reply(ctx, protocol.SystemInfo{
			CPUUsage:        12.5,
			MemoryUsage:     43.0,
			DiskUsage:       61.2,
			MemoryTotal:     16 << 30,
			MemoryAvailable: 9 << 30,
		})
	default:
		c.reply(ctx, protocol.ErrorReply{Domain: protocol.TypeTaskManager, Message: "Unknown action: " + m.Action})
	}
}

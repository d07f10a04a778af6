package control

import (
	"context"

	"github.com/1ureka/nexremote/internal/protocol"
)

// Tasks queries and manages host processes.
type Tasks struct{ c Conn }

func NewTasks(c Conn) *Tasks { return &Tasks{c: c} }

func (t *Tasks) ListProcesses(ctx context.Context) ([]protocol.ProcessInfo, error) {
	list, err := requestAs[protocol.ProcessList](ctx, t.c, protocol.TaskManager{Action: "list_processes"}, nil)
	if err != nil {
		return nil, err
	}
	return list.Processes, nil
}

func (t *Tasks) EndProcess(ctx context.Context, pid int) (protocol.ProcessEnded, error) {
	return requestAs(ctx, t.c, protocol.TaskManager{Action: "end_process", PID: pid},
		func(e protocol.ProcessEnded) bool { return e.PID == pid })
}

func (t *Tasks) SystemInfo(ctx context.Context) (protocol.SystemInfo, error) {
	return requestAs[protocol.SystemInfo](ctx, t.c, protocol.TaskManager{Action: "system_info"}, nil)
}

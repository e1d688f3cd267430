package compositor

import "deedles.dev/wlt/internal/ipc"

func (s *State) ipcWorkspaces() []ipc.Workspace {
	list := make([]ipc.Workspace, 0, len(s.workspaces))
	for _, ws := range s.workspaces {
		list = append(list, ipc.Workspace{
			ID:          ws.index + 1,
			Name:        ws.name,
			WindowCount: len(ws.windows),
			Active:      ws.index == s.active,
		})
	}
	return list
}

func (s *State) focusedTitle() string {
	if w := s.focusedWindow(); w != nil && w.mapped {
		return w.title
	}
	return ""
}

func (s *State) ipcState() ipc.State {
	return ipc.State{
		Workspaces:      s.ipcWorkspaces(),
		ActiveWorkspace: s.active + 1,
		FocusedWindow:   s.focusedTitle(),
	}
}

// State returns what the IPC server reports.
func (s *State) State() ipc.State {
	return s.ipcState()
}

func (s *State) publishWorkspaces() {
	if s.ipc == nil {
		return
	}
	s.ipc.Publish(ipc.Message{
		Type:            ipc.TypeWorkspace,
		Workspaces:      s.ipcWorkspaces(),
		ActiveWorkspace: s.active + 1,
	})
}

func (s *State) publishFocus() {
	if s.ipc == nil {
		return
	}
	title := s.focusedTitle()
	s.ipc.Publish(ipc.Message{Type: ipc.TypeFocus, FocusedWindow: &title})
}

// publishTitle announces a title change of w if it's the focused
// window.
func (s *State) publishTitle(w *Window) {
	if s.ipc == nil || w != s.focusedWindow() {
		return
	}
	title := w.title
	s.ipc.Publish(ipc.Message{Type: ipc.TypeTitle, FocusedWindow: &title})
}

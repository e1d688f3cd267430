// Package protocol describes the Wayland interfaces that the
// compositor implements: their names, advertised versions, message
// names and opcodes, and the enum values used on the wire.
package protocol

import "fmt"

// Kind identifies the interface of a protocol object.
type Kind uint16

const (
	KindNone Kind = iota
	KindDisplay
	KindRegistry
	KindCallback
	KindCompositor
	KindSubcompositor
	KindSubsurface
	KindSurface
	KindRegion
	KindShm
	KindShmPool
	KindBuffer
	KindSeat
	KindPointer
	KindKeyboard
	KindTouch
	KindOutput
	KindDataDeviceManager
	KindDataDevice
	KindDataSource
	KindDataOffer
	KindXdgWmBase
	KindXdgPositioner
	KindXdgSurface
	KindXdgToplevel
	KindXdgPopup
	KindDecorationManager
	KindToplevelDecoration
	KindXdgOutputManager
	KindXdgOutput
	KindLayerShell
	KindLayerSurface
	KindScreencopyManager
	KindScreencopyFrame
	KindOutputManager
	KindOutputHead
	KindOutputMode
	KindOutputConfiguration
	KindOutputConfigurationHead
	KindDmabuf
	KindDmabufParams
	KindDmabufFeedback
	numKinds
)

// Interface describes one protocol interface.
type Interface struct {
	Name     string
	Version  uint32
	Requests []string
	Events   []string
}

var interfaces = [numKinds]Interface{
	KindDisplay: {
		Name: "wl_display", Version: 1,
		Requests: []string{"sync", "get_registry"},
		Events:   []string{"error", "delete_id"},
	},
	KindRegistry: {
		Name: "wl_registry", Version: 1,
		Requests: []string{"bind"},
		Events:   []string{"global", "global_remove"},
	},
	KindCallback: {
		Name: "wl_callback", Version: 1,
		Events: []string{"done"},
	},
	KindCompositor: {
		Name: "wl_compositor", Version: 6,
		Requests: []string{"create_surface", "create_region"},
	},
	KindSubcompositor: {
		Name: "wl_subcompositor", Version: 1,
		Requests: []string{"destroy", "get_subsurface"},
	},
	KindSubsurface: {
		Name: "wl_subsurface", Version: 1,
		Requests: []string{"destroy", "set_position", "place_above", "place_below", "set_sync", "set_desync"},
	},
	KindSurface: {
		Name: "wl_surface", Version: 6,
		Requests: []string{"destroy", "attach", "damage", "frame", "set_opaque_region", "set_input_region", "commit", "set_buffer_transform", "set_buffer_scale", "damage_buffer", "offset"},
		Events:   []string{"enter", "leave", "preferred_buffer_scale", "preferred_buffer_transform"},
	},
	KindRegion: {
		Name: "wl_region", Version: 1,
		Requests: []string{"destroy", "add", "subtract"},
	},
	KindShm: {
		Name: "wl_shm", Version: 1,
		Requests: []string{"create_pool"},
		Events:   []string{"format"},
	},
	KindShmPool: {
		Name: "wl_shm_pool", Version: 1,
		Requests: []string{"create_buffer", "destroy", "resize"},
	},
	KindBuffer: {
		Name: "wl_buffer", Version: 1,
		Requests: []string{"destroy"},
		Events:   []string{"release"},
	},
	KindSeat: {
		Name: "wl_seat", Version: 7,
		Requests: []string{"get_pointer", "get_keyboard", "get_touch", "release"},
		Events:   []string{"capabilities", "name"},
	},
	KindPointer: {
		Name: "wl_pointer", Version: 7,
		Requests: []string{"set_cursor", "release"},
		Events:   []string{"enter", "leave", "motion", "button", "axis", "frame", "axis_source", "axis_stop", "axis_discrete"},
	},
	KindKeyboard: {
		Name: "wl_keyboard", Version: 7,
		Requests: []string{"release"},
		Events:   []string{"keymap", "enter", "leave", "key", "modifiers", "repeat_info"},
	},
	KindTouch: {
		Name: "wl_touch", Version: 7,
		Requests: []string{"release"},
	},
	KindOutput: {
		Name: "wl_output", Version: 4,
		Requests: []string{"release"},
		Events:   []string{"geometry", "mode", "done", "scale", "name", "description"},
	},
	KindDataDeviceManager: {
		Name: "wl_data_device_manager", Version: 3,
		Requests: []string{"create_data_source", "get_data_device"},
	},
	KindDataDevice: {
		Name: "wl_data_device", Version: 3,
		Requests: []string{"start_drag", "set_selection", "release"},
		Events:   []string{"data_offer", "enter", "leave", "motion", "drop", "selection"},
	},
	KindDataSource: {
		Name: "wl_data_source", Version: 3,
		Requests: []string{"offer", "destroy", "set_actions"},
		Events:   []string{"target", "send", "cancelled", "dnd_drop_performed", "dnd_finished", "action"},
	},
	KindDataOffer: {
		Name: "wl_data_offer", Version: 3,
		Requests: []string{"accept", "receive", "destroy", "finish", "set_actions"},
		Events:   []string{"offer", "source_actions", "action"},
	},
	KindXdgWmBase: {
		Name: "xdg_wm_base", Version: 5,
		Requests: []string{"destroy", "create_positioner", "get_xdg_surface", "pong"},
		Events:   []string{"ping"},
	},
	KindXdgPositioner: {
		Name: "xdg_positioner", Version: 5,
		Requests: []string{"destroy", "set_size", "set_anchor_rect", "set_anchor", "set_gravity", "set_constraint_adjustment", "set_offset", "set_reactive", "set_parent_size", "set_parent_configure"},
	},
	KindXdgSurface: {
		Name: "xdg_surface", Version: 5,
		Requests: []string{"destroy", "get_toplevel", "get_popup", "set_window_geometry", "ack_configure"},
		Events:   []string{"configure"},
	},
	KindXdgToplevel: {
		Name: "xdg_toplevel", Version: 5,
		Requests: []string{"destroy", "set_parent", "set_title", "set_app_id", "show_window_menu", "move", "resize", "set_max_size", "set_min_size", "set_maximized", "unset_maximized", "set_fullscreen", "unset_fullscreen", "set_minimized"},
		Events:   []string{"configure", "close", "configure_bounds", "wm_capabilities"},
	},
	KindXdgPopup: {
		Name: "xdg_popup", Version: 5,
		Requests: []string{"destroy", "grab", "reposition"},
		Events:   []string{"configure", "popup_done", "repositioned"},
	},
	KindDecorationManager: {
		Name: "zxdg_decoration_manager_v1", Version: 1,
		Requests: []string{"destroy", "get_toplevel_decoration"},
	},
	KindToplevelDecoration: {
		Name: "zxdg_toplevel_decoration_v1", Version: 1,
		Requests: []string{"destroy", "set_mode", "unset_mode"},
		Events:   []string{"configure"},
	},
	KindXdgOutputManager: {
		Name: "zxdg_output_manager_v1", Version: 3,
		Requests: []string{"destroy", "get_xdg_output"},
	},
	KindXdgOutput: {
		Name: "zxdg_output_v1", Version: 3,
		Requests: []string{"destroy"},
		Events:   []string{"logical_position", "logical_size", "done", "name", "description"},
	},
	KindLayerShell: {
		Name: "zwlr_layer_shell_v1", Version: 4,
		Requests: []string{"get_layer_surface", "destroy"},
	},
	KindLayerSurface: {
		Name: "zwlr_layer_surface_v1", Version: 4,
		Requests: []string{"set_size", "set_anchor", "set_exclusive_zone", "set_margin", "set_keyboard_interactivity", "get_popup", "ack_configure", "destroy", "set_layer"},
		Events:   []string{"configure", "closed"},
	},
	KindScreencopyManager: {
		Name: "zwlr_screencopy_manager_v1", Version: 3,
		Requests: []string{"capture_output", "capture_output_region", "destroy"},
	},
	KindScreencopyFrame: {
		Name: "zwlr_screencopy_frame_v1", Version: 3,
		Requests: []string{"copy", "destroy", "copy_with_damage"},
		Events:   []string{"buffer", "flags", "ready", "failed", "damage", "linux_dmabuf", "buffer_done"},
	},
	KindOutputManager: {
		Name: "zwlr_output_manager_v1", Version: 4,
		Requests: []string{"create_configuration", "stop"},
		Events:   []string{"head", "done", "finished"},
	},
	KindOutputHead: {
		Name: "zwlr_output_head_v1", Version: 4,
		Requests: []string{"release"},
		Events:   []string{"name", "description", "physical_size", "mode", "enabled", "current_mode", "position", "transform", "scale", "finished", "make", "model", "serial_number", "adaptive_sync"},
	},
	KindOutputMode: {
		Name: "zwlr_output_mode_v1", Version: 4,
		Requests: []string{"release"},
		Events:   []string{"size", "refresh", "preferred", "finished"},
	},
	KindOutputConfiguration: {
		Name: "zwlr_output_configuration_v1", Version: 4,
		Requests: []string{"enable_head", "disable_head", "apply", "test", "destroy"},
		Events:   []string{"succeeded", "failed", "cancelled"},
	},
	KindOutputConfigurationHead: {
		Name: "zwlr_output_configuration_head_v1", Version: 4,
		Requests: []string{"set_mode", "set_custom_mode", "set_position", "set_transform", "set_scale", "set_adaptive_sync"},
	},
	KindDmabuf: {
		Name: "zwp_linux_dmabuf_v1", Version: 4,
		Requests: []string{"destroy", "create_params", "get_default_feedback", "get_surface_feedback"},
		Events:   []string{"format", "modifier"},
	},
	KindDmabufParams: {
		Name: "zwp_linux_buffer_params_v1", Version: 4,
		Requests: []string{"destroy", "add", "create", "create_immed"},
		Events:   []string{"created", "failed"},
	},
	KindDmabufFeedback: {
		Name: "zwp_linux_dmabuf_feedback_v1", Version: 4,
		Requests: []string{"destroy"},
		Events:   []string{"done", "format_table", "main_device", "tranche_done", "tranche_target_device", "tranche_formats", "tranche_flags"},
	},
}

var byName = func() map[string]Kind {
	m := make(map[string]Kind, numKinds)
	for k, iface := range interfaces {
		if iface.Name != "" {
			m[iface.Name] = Kind(k)
		}
	}
	return m
}()

// Lookup returns the Kind of the interface with the given name.
func Lookup(name string) (Kind, bool) {
	k, ok := byName[name]
	return k, ok
}

// Interface returns the description of k.
func (k Kind) Interface() *Interface {
	if k >= numKinds {
		return &Interface{}
	}
	return &interfaces[k]
}

func (k Kind) String() string {
	if name := k.Interface().Name; name != "" {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint16(k))
}

// Request returns the name of the request with the given opcode and
// whether it exists.
func (iface *Interface) Request(op uint16) (string, bool) {
	if int(op) >= len(iface.Requests) {
		return "", false
	}
	return iface.Requests[op], true
}

// Event returns the name of the event with the given opcode.
func (iface *Interface) Event(op uint16) string {
	if int(op) >= len(iface.Events) {
		return fmt.Sprintf("event%d", op)
	}
	return iface.Events[op]
}

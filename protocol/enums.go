package protocol

// wl_display errors.
const (
	DisplayErrorInvalidObject  = 0
	DisplayErrorInvalidMethod  = 1
	DisplayErrorNoMemory       = 2
	DisplayErrorImplementation = 3
)

// wl_shm errors and formats. Formats other than ARGB8888 and XRGB8888
// use DRM fourcc codes.
const (
	ShmErrorInvalidFormat = 0
	ShmErrorInvalidStride = 1
	ShmErrorInvalidFD     = 2

	ShmFormatARGB8888 = 0
	ShmFormatXRGB8888 = 1
)

// wl_surface errors.
const (
	SurfaceErrorInvalidScale      = 0
	SurfaceErrorInvalidTransform  = 1
	SurfaceErrorInvalidSize       = 2
	SurfaceErrorInvalidOffset     = 3
	SurfaceErrorDefunctRoleObject = 4
)

// wl_subcompositor and wl_subsurface errors.
const (
	SubcompositorErrorBadSurface = 0
	SubcompositorErrorBadParent  = 1

	SubsurfaceErrorBadSurface = 0
)

// wl_seat capabilities and errors.
const (
	SeatCapabilityPointer  = 1
	SeatCapabilityKeyboard = 2
	SeatCapabilityTouch    = 4

	SeatErrorMissingCapability = 0
)

// wl_pointer enums.
const (
	PointerErrorRole = 0

	PointerButtonStateReleased = 0
	PointerButtonStatePressed  = 1

	PointerAxisVerticalScroll   = 0
	PointerAxisHorizontalScroll = 1

	PointerAxisSourceWheel      = 0
	PointerAxisSourceFinger     = 1
	PointerAxisSourceContinuous = 2
)

// wl_keyboard enums.
const (
	KeyboardKeymapFormatNoKeymap = 0
	KeyboardKeymapFormatXKBV1    = 1

	KeyboardKeyStateReleased = 0
	KeyboardKeyStatePressed  = 1
)

// wl_output enums.
const (
	OutputSubpixelUnknown = 0

	OutputTransformNormal = 0

	OutputModeCurrent   = 1
	OutputModePreferred = 2
)

// wl_data_device_manager and wl_data_source enums.
const (
	DataDeviceErrorRole = 0

	DataSourceErrorInvalidActionMask = 0
	DataSourceErrorInvalidSource     = 1

	DataOfferErrorInvalidFinish     = 0
	DataOfferErrorInvalidActionMask = 1
	DataOfferErrorInvalidAction     = 2
	DataOfferErrorInvalidOffer      = 3

	DndActionNone = 0
	DndActionCopy = 1
	DndActionMove = 2
	DndActionAsk  = 4
)

// xdg_wm_base errors.
const (
	XdgWmBaseErrorRole                = 0
	XdgWmBaseErrorDefunctSurfaces     = 1
	XdgWmBaseErrorNotTheTopmostPopup  = 2
	XdgWmBaseErrorInvalidPopupParent  = 3
	XdgWmBaseErrorInvalidSurfaceState = 4
	XdgWmBaseErrorInvalidPositioner   = 5
	XdgWmBaseErrorUnresponsive        = 6
)

// xdg_positioner enums.
const (
	XdgPositionerErrorInvalidInput = 0

	AnchorNone        = 0
	AnchorTop         = 1
	AnchorBottom      = 2
	AnchorLeft        = 3
	AnchorRight       = 4
	AnchorTopLeft     = 5
	AnchorBottomLeft  = 6
	AnchorTopRight    = 7
	AnchorBottomRight = 8

	ConstraintAdjustmentNone    = 0
	ConstraintAdjustmentSlideX  = 1
	ConstraintAdjustmentSlideY  = 2
	ConstraintAdjustmentFlipX   = 4
	ConstraintAdjustmentFlipY   = 8
	ConstraintAdjustmentResizeX = 16
	ConstraintAdjustmentResizeY = 32
)

// xdg_surface errors.
const (
	XdgSurfaceErrorNotConstructed     = 1
	XdgSurfaceErrorAlreadyConstructed = 2
	XdgSurfaceErrorUnconfiguredBuffer = 3
	XdgSurfaceErrorInvalidSerial      = 4
	XdgSurfaceErrorInvalidSize        = 5
	XdgSurfaceErrorDefunctRoleObject  = 6
)

// xdg_toplevel enums.
const (
	XdgToplevelErrorInvalidResizeEdge = 0
	XdgToplevelErrorInvalidParent     = 1
	XdgToplevelErrorInvalidSize       = 2

	StateMaximized   = 1
	StateFullscreen  = 2
	StateResizing    = 3
	StateActivated   = 4
	StateTiledLeft   = 5
	StateTiledRight  = 6
	StateTiledTop    = 7
	StateTiledBottom = 8
	StateSuspended   = 9

	WmCapabilityWindowMenu = 1
	WmCapabilityMaximize   = 2
	WmCapabilityFullscreen = 3
	WmCapabilityMinimize   = 4

	ResizeEdgeNone        = 0
	ResizeEdgeTop         = 1
	ResizeEdgeBottom      = 2
	ResizeEdgeLeft        = 4
	ResizeEdgeTopLeft     = 5
	ResizeEdgeBottomLeft  = 6
	ResizeEdgeRight       = 8
	ResizeEdgeTopRight    = 9
	ResizeEdgeBottomRight = 10
)

// xdg_popup errors.
const (
	XdgPopupErrorInvalidGrab = 0
)

// zxdg_toplevel_decoration_v1 enums.
const (
	DecorationErrorUnconfiguredBuffer = 0
	DecorationErrorAlreadyConstructed = 1
	DecorationErrorOrphaned           = 2
	DecorationErrorInvalidMode        = 3

	DecorationModeClientSide = 1
	DecorationModeServerSide = 2
)

// zwlr_layer_shell_v1 and zwlr_layer_surface_v1 enums.
const (
	LayerShellErrorRole             = 0
	LayerShellErrorInvalidLayer     = 1
	LayerShellErrorAlreadyConstruct = 2

	LayerBackground = 0
	LayerBottom     = 1
	LayerTop        = 2
	LayerOverlay    = 3

	LayerSurfaceErrorInvalidSurfaceState        = 0
	LayerSurfaceErrorInvalidSize                = 1
	LayerSurfaceErrorInvalidAnchor              = 2
	LayerSurfaceErrorInvalidKeyboardInteractive = 3

	LayerAnchorTop    = 1
	LayerAnchorBottom = 2
	LayerAnchorLeft   = 4
	LayerAnchorRight  = 8

	KeyboardInteractivityNone      = 0
	KeyboardInteractivityExclusive = 1
	KeyboardInteractivityOnDemand  = 2
)

// zwlr_screencopy_frame_v1 enums.
const (
	ScreencopyErrorAlreadyUsed   = 0
	ScreencopyErrorInvalidBuffer = 1

	ScreencopyFlagYInvert = 1
)

// zwlr_output_configuration_v1 errors.
const (
	OutputConfigurationErrorAlreadyConfiguredHead = 1
	OutputConfigurationErrorUnconfiguredHead      = 2
	OutputConfigurationErrorAlreadyUsed           = 3
)

// zwp_linux_buffer_params_v1 errors and flags.
const (
	DmabufParamsErrorAlreadyUsed       = 0
	DmabufParamsErrorPlaneIdx          = 1
	DmabufParamsErrorPlaneSet          = 2
	DmabufParamsErrorIncomplete        = 3
	DmabufParamsErrorInvalidFormat     = 4
	DmabufParamsErrorInvalidDimensions = 5
	DmabufParamsErrorOutOfBounds       = 6
	DmabufParamsErrorInvalidWlBuffer   = 7

	DmabufFeedbackTrancheFlagScanout = 1
)

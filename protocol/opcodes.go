package protocol

// Request opcodes.
const (
	DisplaySync        = 0
	DisplayGetRegistry = 1

	RegistryBind = 0

	CompositorCreateSurface = 0
	CompositorCreateRegion  = 1

	SubcompositorDestroy       = 0
	SubcompositorGetSubsurface = 1

	SubsurfaceDestroy     = 0
	SubsurfaceSetPosition = 1
	SubsurfacePlaceAbove  = 2
	SubsurfacePlaceBelow  = 3
	SubsurfaceSetSync     = 4
	SubsurfaceSetDesync   = 5

	SurfaceDestroy            = 0
	SurfaceAttach             = 1
	SurfaceDamage             = 2
	SurfaceFrame              = 3
	SurfaceSetOpaqueRegion    = 4
	SurfaceSetInputRegion     = 5
	SurfaceCommit             = 6
	SurfaceSetBufferTransform = 7
	SurfaceSetBufferScale     = 8
	SurfaceDamageBuffer       = 9
	SurfaceOffset             = 10

	RegionDestroy  = 0
	RegionAdd      = 1
	RegionSubtract = 2

	ShmCreatePool = 0

	ShmPoolCreateBuffer = 0
	ShmPoolDestroy      = 1
	ShmPoolResize       = 2

	BufferDestroy = 0

	SeatGetPointer  = 0
	SeatGetKeyboard = 1
	SeatGetTouch    = 2
	SeatRelease     = 3

	PointerSetCursor = 0
	PointerRelease   = 1

	KeyboardRelease = 0

	TouchRelease = 0

	OutputRelease = 0

	DataDeviceManagerCreateDataSource = 0
	DataDeviceManagerGetDataDevice    = 1

	DataDeviceStartDrag    = 0
	DataDeviceSetSelection = 1
	DataDeviceRelease      = 2

	DataSourceOffer      = 0
	DataSourceDestroy    = 1
	DataSourceSetActions = 2

	DataOfferAccept     = 0
	DataOfferReceive    = 1
	DataOfferDestroy    = 2
	DataOfferFinish     = 3
	DataOfferSetActions = 4

	XdgWmBaseDestroy          = 0
	XdgWmBaseCreatePositioner = 1
	XdgWmBaseGetXdgSurface    = 2
	XdgWmBasePong             = 3

	XdgPositionerDestroy                 = 0
	XdgPositionerSetSize                 = 1
	XdgPositionerSetAnchorRect           = 2
	XdgPositionerSetAnchor               = 3
	XdgPositionerSetGravity              = 4
	XdgPositionerSetConstraintAdjustment = 5
	XdgPositionerSetOffset               = 6
	XdgPositionerSetReactive             = 7
	XdgPositionerSetParentSize           = 8
	XdgPositionerSetParentConfigure      = 9

	XdgSurfaceDestroy           = 0
	XdgSurfaceGetToplevel       = 1
	XdgSurfaceGetPopup          = 2
	XdgSurfaceSetWindowGeometry = 3
	XdgSurfaceAckConfigure      = 4

	XdgToplevelDestroy         = 0
	XdgToplevelSetParent       = 1
	XdgToplevelSetTitle        = 2
	XdgToplevelSetAppId        = 3
	XdgToplevelShowWindowMenu  = 4
	XdgToplevelMove            = 5
	XdgToplevelResize          = 6
	XdgToplevelSetMaxSize      = 7
	XdgToplevelSetMinSize      = 8
	XdgToplevelSetMaximized    = 9
	XdgToplevelUnsetMaximized  = 10
	XdgToplevelSetFullscreen   = 11
	XdgToplevelUnsetFullscreen = 12
	XdgToplevelSetMinimized    = 13

	XdgPopupDestroy    = 0
	XdgPopupGrab       = 1
	XdgPopupReposition = 2

	DecorationManagerDestroy               = 0
	DecorationManagerGetToplevelDecoration = 1

	ToplevelDecorationDestroy   = 0
	ToplevelDecorationSetMode   = 1
	ToplevelDecorationUnsetMode = 2

	XdgOutputManagerDestroy      = 0
	XdgOutputManagerGetXdgOutput = 1

	XdgOutputDestroy = 0

	LayerShellGetLayerSurface = 0
	LayerShellDestroy         = 1

	LayerSurfaceSetSize                  = 0
	LayerSurfaceSetAnchor                = 1
	LayerSurfaceSetExclusiveZone         = 2
	LayerSurfaceSetMargin                = 3
	LayerSurfaceSetKeyboardInteractivity = 4
	LayerSurfaceGetPopup                 = 5
	LayerSurfaceAckConfigure             = 6
	LayerSurfaceDestroy                  = 7
	LayerSurfaceSetLayer                 = 8

	ScreencopyManagerCaptureOutput       = 0
	ScreencopyManagerCaptureOutputRegion = 1
	ScreencopyManagerDestroy             = 2

	ScreencopyFrameCopy           = 0
	ScreencopyFrameDestroy        = 1
	ScreencopyFrameCopyWithDamage = 2

	OutputManagerCreateConfiguration = 0
	OutputManagerStop                = 1

	OutputHeadRelease = 0

	OutputModeRelease = 0

	OutputConfigurationEnableHead  = 0
	OutputConfigurationDisableHead = 1
	OutputConfigurationApply       = 2
	OutputConfigurationTest        = 3
	OutputConfigurationDestroy     = 4

	OutputConfigurationHeadSetMode         = 0
	OutputConfigurationHeadSetCustomMode   = 1
	OutputConfigurationHeadSetPosition     = 2
	OutputConfigurationHeadSetTransform    = 3
	OutputConfigurationHeadSetScale        = 4
	OutputConfigurationHeadSetAdaptiveSync = 5

	DmabufDestroy            = 0
	DmabufCreateParams       = 1
	DmabufGetDefaultFeedback = 2
	DmabufGetSurfaceFeedback = 3

	DmabufParamsDestroy     = 0
	DmabufParamsAdd         = 1
	DmabufParamsCreate      = 2
	DmabufParamsCreateImmed = 3

	DmabufFeedbackDestroy = 0
)

// Event opcodes.
const (
	EvDisplayError    = 0
	EvDisplayDeleteId = 1

	EvRegistryGlobal       = 0
	EvRegistryGlobalRemove = 1

	EvCallbackDone = 0

	EvSurfaceEnter                    = 0
	EvSurfaceLeave                    = 1
	EvSurfacePreferredBufferScale     = 2
	EvSurfacePreferredBufferTransform = 3

	EvShmFormat = 0

	EvBufferRelease = 0

	EvSeatCapabilities = 0
	EvSeatName         = 1

	EvPointerEnter        = 0
	EvPointerLeave        = 1
	EvPointerMotion       = 2
	EvPointerButton       = 3
	EvPointerAxis         = 4
	EvPointerFrame        = 5
	EvPointerAxisSource   = 6
	EvPointerAxisStop     = 7
	EvPointerAxisDiscrete = 8

	EvKeyboardKeymap     = 0
	EvKeyboardEnter      = 1
	EvKeyboardLeave      = 2
	EvKeyboardKey        = 3
	EvKeyboardModifiers  = 4
	EvKeyboardRepeatInfo = 5

	EvOutputGeometry    = 0
	EvOutputMode        = 1
	EvOutputDone        = 2
	EvOutputScale       = 3
	EvOutputName        = 4
	EvOutputDescription = 5

	EvDataDeviceDataOffer = 0
	EvDataDeviceEnter     = 1
	EvDataDeviceLeave     = 2
	EvDataDeviceMotion    = 3
	EvDataDeviceDrop      = 4
	EvDataDeviceSelection = 5

	EvDataSourceTarget           = 0
	EvDataSourceSend             = 1
	EvDataSourceCancelled        = 2
	EvDataSourceDndDropPerformed = 3
	EvDataSourceDndFinished      = 4
	EvDataSourceAction           = 5

	EvDataOfferOffer         = 0
	EvDataOfferSourceActions = 1
	EvDataOfferAction        = 2

	EvXdgWmBasePing = 0

	EvXdgSurfaceConfigure = 0

	EvXdgToplevelConfigure       = 0
	EvXdgToplevelClose           = 1
	EvXdgToplevelConfigureBounds = 2
	EvXdgToplevelWmCapabilities  = 3

	EvXdgPopupConfigure    = 0
	EvXdgPopupPopupDone    = 1
	EvXdgPopupRepositioned = 2

	EvToplevelDecorationConfigure = 0

	EvXdgOutputLogicalPosition = 0
	EvXdgOutputLogicalSize     = 1
	EvXdgOutputDone            = 2
	EvXdgOutputName            = 3
	EvXdgOutputDescription     = 4

	EvLayerSurfaceConfigure = 0
	EvLayerSurfaceClosed    = 1

	EvScreencopyFrameBuffer      = 0
	EvScreencopyFrameFlags       = 1
	EvScreencopyFrameReady       = 2
	EvScreencopyFrameFailed      = 3
	EvScreencopyFrameDamage      = 4
	EvScreencopyFrameLinuxDmabuf = 5
	EvScreencopyFrameBufferDone  = 6

	EvOutputManagerHead     = 0
	EvOutputManagerDone     = 1
	EvOutputManagerFinished = 2

	EvOutputHeadName         = 0
	EvOutputHeadDescription  = 1
	EvOutputHeadPhysicalSize = 2
	EvOutputHeadMode         = 3
	EvOutputHeadEnabled      = 4
	EvOutputHeadCurrentMode  = 5
	EvOutputHeadPosition     = 6
	EvOutputHeadTransform    = 7
	EvOutputHeadScale        = 8
	EvOutputHeadFinished     = 9
	EvOutputHeadMake         = 10
	EvOutputHeadModel        = 11
	EvOutputHeadSerialNumber = 12
	EvOutputHeadAdaptiveSync = 13

	EvOutputModeSize      = 0
	EvOutputModeRefresh   = 1
	EvOutputModePreferred = 2
	EvOutputModeFinished  = 3

	EvOutputConfigurationSucceeded = 0
	EvOutputConfigurationFailed    = 1
	EvOutputConfigurationCancelled = 2

	EvDmabufFormat   = 0
	EvDmabufModifier = 1

	EvDmabufParamsCreated = 0
	EvDmabufParamsFailed  = 1

	EvDmabufFeedbackDone                = 0
	EvDmabufFeedbackFormatTable         = 1
	EvDmabufFeedbackMainDevice          = 2
	EvDmabufFeedbackTrancheDone         = 3
	EvDmabufFeedbackTrancheTargetDevice = 4
	EvDmabufFeedbackTrancheFormats      = 5
	EvDmabufFeedbackTrancheFlags        = 6
)

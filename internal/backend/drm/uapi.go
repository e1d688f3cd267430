package drm

import (
	"runtime"
	"unsafe"

	"deedles.dev/wlt/internal/ioctl"
	"golang.org/x/sys/unix"
)

// Structures and request numbers from drm.h and drm_mode.h.

const (
	capDumbBuffer = 0x1

	connected = 1

	modeTypePreferred = 1 << 3

	pageFlipEvent = 0x01

	eventFlipComplete = 0x02

	objectCRTC      = 0xcccccccc
	objectConnector = 0xc0c0c0c0
)

type getCap struct {
	Capability uint64
	Value      uint64
}

type cardRes struct {
	FBIDPtr         uint64
	CRTCIDPtr       uint64
	ConnectorIDPtr  uint64
	EncoderIDPtr    uint64
	CountFBs        uint32
	CountCRTCs      uint32
	CountConnectors uint32
	CountEncoders   uint32
	MinWidth        uint32
	MaxWidth        uint32
	MinHeight       uint32
	MaxHeight       uint32
}

type modeInfo struct {
	Clock      uint32
	HDisplay   uint16
	HSyncStart uint16
	HSyncEnd   uint16
	HTotal     uint16
	HSkew      uint16
	VDisplay   uint16
	VSyncStart uint16
	VSyncEnd   uint16
	VTotal     uint16
	VScan      uint16
	VRefresh   uint32
	Flags      uint32
	Type       uint32
	Name       [32]byte
}

// refreshMHz computes the exact refresh rate of the mode.
func (m *modeInfo) refreshMHz() int {
	total := uint64(m.HTotal) * uint64(m.VTotal)
	if total == 0 {
		return int(m.VRefresh) * 1000
	}
	mhz := (uint64(m.Clock)*1000000 + total/2) / total
	if m.Flags&0x10 != 0 { // interlaced
		mhz *= 2
	}
	if m.VScan > 1 {
		mhz /= uint64(m.VScan)
	}
	return int(mhz)
}

type modeCRTC struct {
	SetConnectorsPtr uint64
	CountConnectors  uint32
	CRTCID           uint32
	FBID             uint32
	X                uint32
	Y                uint32
	GammaSize        uint32
	ModeValid        uint32
	Mode             modeInfo
}

type getEncoder struct {
	EncoderID      uint32
	EncoderType    uint32
	CRTCID         uint32
	PossibleCRTCs  uint32
	PossibleClones uint32
}

type getConnector struct {
	EncodersPtr     uint64
	ModesPtr        uint64
	PropsPtr        uint64
	PropValuesPtr   uint64
	CountModes      uint32
	CountProps      uint32
	CountEncoders   uint32
	EncoderID       uint32
	ConnectorID     uint32
	ConnectorType   uint32
	ConnectorTypeID uint32
	Connection      uint32
	MMWidth         uint32
	MMHeight        uint32
	Subpixel        uint32
	Pad             uint32
}

type fbCmd struct {
	FBID   uint32
	Width  uint32
	Height uint32
	Pitch  uint32
	BPP    uint32
	Depth  uint32
	Handle uint32
}

type crtcPageFlip struct {
	CRTCID   uint32
	FBID     uint32
	Flags    uint32
	Reserved uint32
	UserData uint64
}

type createDumb struct {
	Height uint32
	Width  uint32
	BPP    uint32
	Flags  uint32
	Handle uint32
	Pitch  uint32
	Size   uint64
}

type mapDumb struct {
	Handle uint32
	Pad    uint32
	Offset uint64
}

type destroyDumb struct {
	Handle uint32
}

type objGetProperties struct {
	PropsPtr      uint64
	PropValuesPtr uint64
	CountProps    uint32
	ObjID         uint32
	ObjType       uint32
	_             uint32
}

type getProperty struct {
	ValuesPtr      uint64
	EnumBlobPtr    uint64
	PropID         uint32
	Flags          uint32
	Name           [32]byte
	CountValues    uint32
	CountEnumBlobs uint32
}

type objSetProperty struct {
	Value   uint64
	PropID  uint32
	ObjID   uint32
	ObjType uint32
	_       uint32
}

type eventHeader struct {
	Type   uint32
	Length uint32
}

type eventVblank struct {
	eventHeader
	UserData uint64
	TvSec    uint32
	TvUsec   uint32
	Sequence uint32
	CRTCID   uint32
}

var (
	reqSetMaster        = ioctl.IO('d', 0x1e)
	reqDropMaster       = ioctl.IO('d', 0x1f)
	reqGetCap           = ioctl.IOWR('d', 0x0c, unsafe.Sizeof(getCap{}))
	reqGetResources     = ioctl.IOWR('d', 0xA0, unsafe.Sizeof(cardRes{}))
	reqGetCRTC          = ioctl.IOWR('d', 0xA1, unsafe.Sizeof(modeCRTC{}))
	reqSetCRTC          = ioctl.IOWR('d', 0xA2, unsafe.Sizeof(modeCRTC{}))
	reqGetEncoder       = ioctl.IOWR('d', 0xA6, unsafe.Sizeof(getEncoder{}))
	reqGetConnector     = ioctl.IOWR('d', 0xA7, unsafe.Sizeof(getConnector{}))
	reqGetProperty      = ioctl.IOWR('d', 0xAA, unsafe.Sizeof(getProperty{}))
	reqAddFB            = ioctl.IOWR('d', 0xAE, unsafe.Sizeof(fbCmd{}))
	reqRmFB             = ioctl.IOWR('d', 0xAF, unsafe.Sizeof(uint32(0)))
	reqPageFlip         = ioctl.IOWR('d', 0xB0, unsafe.Sizeof(crtcPageFlip{}))
	reqCreateDumb       = ioctl.IOWR('d', 0xB2, unsafe.Sizeof(createDumb{}))
	reqMapDumb          = ioctl.IOWR('d', 0xB3, unsafe.Sizeof(mapDumb{}))
	reqDestroyDumb      = ioctl.IOWR('d', 0xB4, unsafe.Sizeof(destroyDumb{}))
	reqObjGetProperties = ioctl.IOWR('d', 0xB9, unsafe.Sizeof(objGetProperties{}))
	reqObjSetProperty   = ioctl.IOWR('d', 0xBA, unsafe.Sizeof(objSetProperty{}))
)

func ptr[T any](s []T) uint64 {
	if len(s) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&s[0])))
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

type card struct {
	fd int
}

func (c card) ioctl(req uintptr, arg unsafe.Pointer) error {
	return ioctl.Ioctl(c.fd, req, arg)
}

func (c card) cap(capability uint64) (uint64, error) {
	v := getCap{Capability: capability}
	err := c.ioctl(reqGetCap, unsafe.Pointer(&v))
	return v.Value, err
}

type resources struct {
	crtcs      []uint32
	connectors []uint32
	encoders   []uint32
}

func (c card) resources() (resources, error) {
	// The counts can change between the two calls when hotplugging,
	// so retry until they are stable.
	for {
		var res cardRes
		err := c.ioctl(reqGetResources, unsafe.Pointer(&res))
		if err != nil {
			return resources{}, err
		}

		r := resources{
			crtcs:      make([]uint32, res.CountCRTCs),
			connectors: make([]uint32, res.CountConnectors),
			encoders:   make([]uint32, res.CountEncoders),
		}
		counts := res
		res = cardRes{
			CRTCIDPtr:       ptr(r.crtcs),
			ConnectorIDPtr:  ptr(r.connectors),
			EncoderIDPtr:    ptr(r.encoders),
			CountCRTCs:      counts.CountCRTCs,
			CountConnectors: counts.CountConnectors,
			CountEncoders:   counts.CountEncoders,
		}
		err = c.ioctl(reqGetResources, unsafe.Pointer(&res))
		if err != nil {
			return resources{}, err
		}
		if res.CountCRTCs == counts.CountCRTCs && res.CountConnectors == counts.CountConnectors && res.CountEncoders == counts.CountEncoders {
			return r, nil
		}
	}
}

type connector struct {
	id         uint32
	typ        uint32
	typeID     uint32
	connected  bool
	encoderID  uint32
	encoders   []uint32
	modes      []modeInfo
	mmW, mmH   uint32
	properties map[string]propValue
}

type propValue struct {
	id    uint32
	value uint64
}

func (c card) connector(id uint32) (connector, error) {
	for {
		info := getConnector{ConnectorID: id}
		err := c.ioctl(reqGetConnector, unsafe.Pointer(&info))
		if err != nil {
			return connector{}, err
		}

		modes := make([]modeInfo, info.CountModes)
		encoders := make([]uint32, info.CountEncoders)
		counts := info
		info = getConnector{
			ConnectorID:   id,
			ModesPtr:      ptr(modes),
			EncodersPtr:   ptr(encoders),
			CountModes:    counts.CountModes,
			CountEncoders: counts.CountEncoders,
		}
		err = c.ioctl(reqGetConnector, unsafe.Pointer(&info))
		if err != nil {
			return connector{}, err
		}
		if info.CountModes != counts.CountModes || info.CountEncoders != counts.CountEncoders {
			continue
		}

		props, err := c.properties(id, objectConnector)
		if err != nil {
			return connector{}, err
		}

		return connector{
			id:         id,
			typ:        info.ConnectorType,
			typeID:     info.ConnectorTypeID,
			connected:  info.Connection == connected,
			encoderID:  info.EncoderID,
			encoders:   encoders,
			modes:      modes,
			mmW:        info.MMWidth,
			mmH:        info.MMHeight,
			properties: props,
		}, nil
	}
}

func (c card) encoder(id uint32) (getEncoder, error) {
	enc := getEncoder{EncoderID: id}
	err := c.ioctl(reqGetEncoder, unsafe.Pointer(&enc))
	return enc, err
}

func (c card) crtc(id uint32) (modeCRTC, error) {
	crtc := modeCRTC{CRTCID: id}
	err := c.ioctl(reqGetCRTC, unsafe.Pointer(&crtc))
	return crtc, err
}

func (c card) setCRTC(crtc uint32, fb uint32, conn uint32, mode *modeInfo) error {
	conns := []uint32{conn}
	arg := modeCRTC{
		SetConnectorsPtr: ptr(conns),
		CountConnectors:  1,
		CRTCID:           crtc,
		FBID:             fb,
		ModeValid:        1,
		Mode:             *mode,
	}
	err := c.ioctl(reqSetCRTC, unsafe.Pointer(&arg))
	runtime.KeepAlive(conns)
	return err
}

func (c card) restoreCRTC(saved modeCRTC, conn uint32) error {
	conns := []uint32{conn}
	saved.SetConnectorsPtr = ptr(conns)
	saved.CountConnectors = 1
	err := c.ioctl(reqSetCRTC, unsafe.Pointer(&saved))
	runtime.KeepAlive(conns)
	return err
}

func (c card) properties(obj uint32, typ uint32) (map[string]propValue, error) {
	arg := objGetProperties{ObjID: obj, ObjType: typ}
	err := c.ioctl(reqObjGetProperties, unsafe.Pointer(&arg))
	if err != nil {
		return nil, err
	}

	ids := make([]uint32, arg.CountProps)
	values := make([]uint64, arg.CountProps)
	arg.PropsPtr = ptr(ids)
	arg.PropValuesPtr = ptr(values)
	err = c.ioctl(reqObjGetProperties, unsafe.Pointer(&arg))
	if err != nil {
		return nil, err
	}

	props := make(map[string]propValue, len(ids))
	for i, id := range ids[:min(len(ids), int(arg.CountProps))] {
		prop := getProperty{PropID: id}
		err := c.ioctl(reqGetProperty, unsafe.Pointer(&prop))
		if err != nil {
			continue
		}
		props[cstring(prop.Name[:])] = propValue{id: id, value: values[i]}
	}
	return props, nil
}

func (c card) setProperty(obj, typ, prop uint32, value uint64) error {
	arg := objSetProperty{Value: value, PropID: prop, ObjID: obj, ObjType: typ}
	return c.ioctl(reqObjSetProperty, unsafe.Pointer(&arg))
}

// dumb is a CPU-mappable scanout buffer with a framebuffer attached.
type dumb struct {
	handle uint32
	fb     uint32
	pitch  uint32
	data   []byte
}

func (c card) createDumb(w, h int) (*dumb, error) {
	create := createDumb{Width: uint32(w), Height: uint32(h), BPP: 32}
	err := c.ioctl(reqCreateDumb, unsafe.Pointer(&create))
	if err != nil {
		return nil, err
	}
	d := dumb{handle: create.Handle, pitch: create.Pitch}

	fb := fbCmd{
		Width:  uint32(w),
		Height: uint32(h),
		Pitch:  create.Pitch,
		BPP:    32,
		Depth:  24,
		Handle: create.Handle,
	}
	err = c.ioctl(reqAddFB, unsafe.Pointer(&fb))
	if err != nil {
		c.destroyDumb(&d)
		return nil, err
	}
	d.fb = fb.FBID

	m := mapDumb{Handle: create.Handle}
	err = c.ioctl(reqMapDumb, unsafe.Pointer(&m))
	if err != nil {
		c.destroyDumb(&d)
		return nil, err
	}
	data, err := unix.Mmap(c.fd, int64(m.Offset), int(create.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		c.destroyDumb(&d)
		return nil, err
	}
	d.data = data

	return &d, nil
}

func (c card) destroyDumb(d *dumb) {
	if d.data != nil {
		unix.Munmap(d.data)
		d.data = nil
	}
	if d.fb != 0 {
		fb := d.fb
		c.ioctl(reqRmFB, unsafe.Pointer(&fb))
		d.fb = 0
	}
	arg := destroyDumb{Handle: d.handle}
	c.ioctl(reqDestroyDumb, unsafe.Pointer(&arg))
}

func (c card) pageFlip(crtc, fb uint32, data uint64) error {
	arg := crtcPageFlip{CRTCID: crtc, FBID: fb, Flags: pageFlipEvent, UserData: data}
	return c.ioctl(reqPageFlip, unsafe.Pointer(&arg))
}

func (c card) setMaster() error {
	return ioctl.Int(c.fd, reqSetMaster, 0)
}

func (c card) dropMaster() error {
	return ioctl.Int(c.fd, reqDropMaster, 0)
}

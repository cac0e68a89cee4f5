package gfx

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DeviceHandle is the shared-device provider contract. Windowing layers
// that own the GPU device (surface, swapchain) hand one of these to the
// rendering system instead of letting it open its own adapter.
type DeviceHandle = gpucontext.DeviceProvider

// System bundles the resource table, the frame encoder, and the render
// session over one device. It is the top-level entry point of the package.
//
// All methods must be called from the thread that owns the device.
type System struct {
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance

	// ownDevice is set when Open created the device, so Close tears it
	// down. Devices from a provider are left alone.
	ownDevice bool

	Resources *ResourceTable
	Frame     *FrameEncoder
	Session   *RenderSession
}

// NewSystem builds a rendering system over an externally owned device and
// queue, targeting the given color format.
func NewSystem(device hal.Device, queue hal.Queue, targetFormat gputypes.TextureFormat) (*System, error) {
	if device == nil {
		return nil, ErrNilDevice
	}

	resources, err := NewResourceTable(device, queue)
	if err != nil {
		return nil, fmt.Errorf("gfx: resource table: %w", err)
	}
	session, err := NewRenderSession(device, queue, resources, targetFormat)
	if err != nil {
		resources.Close()
		return nil, fmt.Errorf("gfx: render session: %w", err)
	}

	return &System{
		device:    device,
		queue:     queue,
		Resources: resources,
		Frame:     NewFrameEncoder(resources),
		Session:   session,
	}, nil
}

// NewSystemFromProvider builds a rendering system over a shared device from
// a windowing-layer provider. The provider must expose the underlying HAL
// types via HalDevice() any and HalQueue() any.
func NewSystemFromProvider(provider DeviceHandle) (*System, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("gfx: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("gfx: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("gfx: provider HalQueue is not hal.Queue")
	}
	return NewSystem(device, queue, provider.SurfaceFormat())
}

// Open creates a rendering system over its own device, preferring a
// discrete or integrated GPU on the Vulkan backend. Close destroys the
// device again.
func Open() (*System, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("gfx: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gfx: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("gfx: no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gfx: open device: %w", err)
	}

	sys, err := NewSystem(openDev.Device, openDev.Queue, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	sys.instance = instance
	sys.ownDevice = true

	Logger().Info("opened GPU device", "adapter", selected.Info.Name)
	return sys, nil
}

// Device returns the underlying HAL device.
func (s *System) Device() hal.Device { return s.device }

// Queue returns the underlying HAL queue.
func (s *System) Queue() hal.Queue { return s.queue }

// Close releases the session, every table resource, and, if the system
// opened its own device, the device and instance.
func (s *System) Close() {
	if s.Frame != nil && s.Frame.State() != BatchIdle {
		s.Frame.Abort()
	}
	if s.Session != nil {
		s.Session.Destroy()
		s.Session = nil
	}
	if s.Resources != nil {
		s.Resources.Close()
		s.Resources = nil
	}
	if s.ownDevice && s.device != nil {
		s.device.Destroy()
		s.device = nil
	}
	if s.instance != nil {
		s.instance.Destroy()
		s.instance = nil
	}
}

package descriptor

import (
	"fmt"

	"github.com/bgrewell/dvd-kit/pkg/consts"
)

// Size of the header shared by every ISO9660 volume descriptor.
const VOLUME_DESCRIPTOR_HEADER_SIZE = 7

type VolumeDescriptorHeader struct {
	// Volume Descriptor Types.
	//  | 0 = Boot Record
	//  | 1 = Primary
	//  | 2 = Supplementary
	//  | 3 = Partition
	//  | 4 - 254 = Reserved
	//  | 255 = Terminator
	VolumeDescriptorType VolumeDescriptorType `json:"volume_descriptor_type"`
	// Standard Identifier should always be 'CD001' as a string or 0x4344303031.
	StandardIdentifier string `json:"standard_identifier"`
	// Volume Descriptor Version. The contents and interpretation depend on the Volume Descriptor Type field.
	VolumeDescriptorVersion uint8 `json:"volume_descriptor_version"`
}

// Unmarshal decodes the header from the first bytes of a volume descriptor.
func (h *VolumeDescriptorHeader) Unmarshal(data []byte) error {
	if len(data) < VOLUME_DESCRIPTOR_HEADER_SIZE {
		return fmt.Errorf("volume descriptor header needs %d bytes, got %d", VOLUME_DESCRIPTOR_HEADER_SIZE, len(data))
	}
	h.VolumeDescriptorType = VolumeDescriptorType(data[0])
	h.StandardIdentifier = string(data[1:6])
	h.VolumeDescriptorVersion = data[6]
	return nil
}

// Valid reports whether the header carries the ISO9660 standard identifier.
func (h *VolumeDescriptorHeader) Valid() bool {
	return h.StandardIdentifier == consts.ISO9660_STD_IDENTIFIER
}

func (h *VolumeDescriptorHeader) Type() VolumeDescriptorType {
	return h.VolumeDescriptorType
}

func (h *VolumeDescriptorHeader) Identifier() string {
	return h.StandardIdentifier
}

func (h *VolumeDescriptorHeader) Version() uint8 {
	return h.VolumeDescriptorVersion
}

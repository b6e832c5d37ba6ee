package enums

import "fmt"

// Channel identifies where an order originated.
type Channel string

const (
	ChannelWebsite     Channel = "website"
	ChannelWhatsapp    Channel = "whatsapp"
	ChannelInstagram   Channel = "instagram"
	ChannelMarketplace Channel = "marketplace"
)

var validChannels = []Channel{
	ChannelWebsite,
	ChannelWhatsapp,
	ChannelInstagram,
	ChannelMarketplace,
}

// String implements fmt.Stringer.
func (c Channel) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Channel.
func (c Channel) IsValid() bool {
	for _, candidate := range validChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChannel converts raw input into a Channel.
func ParseChannel(value string) (Channel, error) {
	for _, candidate := range validChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid channel %q", value)
}

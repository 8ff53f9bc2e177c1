package service

import (
	"strings"

	"github.com/skip2/go-qrcode"
)

type QRGenerator interface {
	Generate(orderID string) ([]byte, error)
}

// TrackingQRGenerator encodes a link to the order's tracking page.
type TrackingQRGenerator struct {
	BaseURL string
	Size    int
}

func (g TrackingQRGenerator) Link(orderID string) string {
	return strings.TrimRight(g.BaseURL, "/") + "/orders/" + orderID
}

func (g TrackingQRGenerator) Generate(orderID string) ([]byte, error) {
	size := g.Size
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(g.Link(orderID), qrcode.Medium, size)
}

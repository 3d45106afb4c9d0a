package repository

import "sync/atomic"

// SchemaCapabilities records which optional columns exist in the connected
// database. Databases provisioned before the gallery migration lack the
// products.gallery_images column; repositories consult this value instead of
// guessing, and the gallery reconciler refreshes it with an explicit probe.
//
// Modeled as an explicit dependency rather than package-level state so that
// tests can construct either shape without cross-test pollution.
type SchemaCapabilities struct {
	galleryField atomic.Bool
}

// NewSchemaCapabilities builds a capability set with the gallery column
// presence known up front.
func NewSchemaCapabilities(galleryFieldExists bool) *SchemaCapabilities {
	c := &SchemaCapabilities{}
	c.galleryField.Store(galleryFieldExists)
	return c
}

// GalleryField reports whether products.gallery_images exists remotely.
func (c *SchemaCapabilities) GalleryField() bool {
	return c.galleryField.Load()
}

// SetGalleryField updates the recorded presence of the gallery column.
func (c *SchemaCapabilities) SetGalleryField(exists bool) {
	c.galleryField.Store(exists)
}

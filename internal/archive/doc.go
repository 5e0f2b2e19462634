// Package archive defines the contract of persistable objects and the codec
// that turns an object graph into a single blob and back.
//
// A blob is a BSON document {type, id, fields}. Nested objects are written
// inline as envelopes of the same shape. Encoders and decoders are built for
// one store and one operation; the store is passed explicitly, so any number
// of stores may archive and unarchive at the same time.
//
// When a nested envelope carries an id, decoding resolves it in order:
//
//  1. the store's identity cache (Store.Lookup)
//  2. objects already decoded earlier in the same Unmarshal
//  3. a new instance from the Registry, bound to the store under that id and
//     decoded from the object's own row when the store is an ArchiveReader,
//     from the inline copy otherwise
//
// New instances are returned to the caller rather than registered, so a
// failed decode never leaves a partial object visible through the store.
// Side effects a type needs while decoding are registered with
// Decoder.AfterDecode and run only once the decode has succeeded.
package archive

// Package bind reads and writes fields of evaluated layouts in linear memory.
//
// A View pairs a layout.Layout with a base address. Field accessors look
// fields up by name and check the access width against the field size, so
// a uint32 read of an 8-byte field is an error rather than a partial read.
//
// WrapMemory and WrapAllocator adapt a wazero module's exported memory and
// cabi_realloc function; Buffer is a plain in-process memory.
package bind

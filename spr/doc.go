// Package spr implements a reader and writer for Tibia.spr sprite sets.
//
// A sprite set is a header (signature, sprite count) followed by a table of
// offsets, one per sprite, and the sprite blocks themselves. Each block is
// an optional color key, a size and a run-length encoding of a 32x32
// image, in either the RGB or the RGBA ("transparency") variant. Which
// variant a file uses is not recorded in it and must be passed in.
//
// A higher level implementation needs to be used together with the dataset
// information on a thing's graphics layout and sprites in order to actually
// construct a full recognizable image.
//
// Since .pic format also uses the same encoder, DecodeUpcoming can be used
// as a basis for a .pic decoder.
package spr

// Package compress provides the pluggable compression codecs backing
// matrix.Materialize's in-memory cache.
//
// A materialized matrix holds every decoded cell for random access. By
// default that cache is held uncompressed (NoOpCompressor); a caller can
// pass one of the codecs here to matrix.WithCompression, creating it by
// format.CompressionType:
//
//	codec, _ := compress.CreateCodec(format.CompressionZstd, "materialize")
//	compressed, _ := codec.Compress(encodedCells)
//	original, _ := codec.Decompress(compressed)
//
// # Supported algorithms
//
//   - None: no compression, for small or already-incompressible caches.
//   - Zstd: best ratio, moderate speed; good for archival-sized materializations.
//   - S2: balanced ratio and speed.
//   - LZ4: fastest decompression, for read-heavy random access.
//
// # SAV run-length symmetry
//
// SAV's 1-in-9 control-byte scheme (sav package) is additionally
// exposed here as a Codec via NewSAVRunLengthCodec, for callers that want
// to recompress (or inspect) a whole case-data buffer without driving it
// through the column-typed matrix reader/writer.
//
// # Thread safety
//
// Codec implementations are safe for concurrent use.
package compress

// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", s3.WithPrefix("vemos/"))
//
//	repo := session.NewBlobRepository(store)
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads with CRC32C checksums
//   - Automatic pagination for listing
//   - DynamoDB commit pointers for concurrent writers (DDBCommitStore)
package s3

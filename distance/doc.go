// Package distance compares two samples of a data type.
//
// A sample is a Plane of float64 values: the first channel of an image or
// the numeric table of a curve or point cloud file. Planes of different size
// are centre-cropped to their common size before comparison.
//
// # Supported Metrics
//
//   - MetricEuclidean: Frobenius norm of the difference (dissimilarity)
//   - MetricHamming: number of differing values (dissimilarity)
//   - MetricMSE: mean squared error (dissimilarity)
//   - MetricNRMSE: root mean squared error normalized by the first sample (dissimilarity)
//   - MetricSSIM: mean structural similarity index (similarity)
//
// # Usage
//
//	fn, err := distance.Provider(distance.MetricSSIM)
//	score, err := fn(a, b)
package distance

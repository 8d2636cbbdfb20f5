// Package testutil provides deterministic fixtures for vemos tests.
//
// This package is intended for use in tests only.
//
// # Records
//
//	set := testutil.Match(testutil.Records("G", "a", "b", "c"), "a", "b")
//
// # Score Matrices
//
//	rng := testutil.NewRNG(4711)
//	d := rng.SeparableScores(set, 0.9, 0.1, 0.05) // matches score near 0.9
//
// # Files
//
//	fsys := fstest.MapFS{
//	    "G/a.png":   {Data: testutil.GrayPNG(8, 8, 0xffff)},
//	    "ssim.txt":  {Data: []byte(testutil.DenseText(rows))},
//	}
package testutil

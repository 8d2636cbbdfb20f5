// Package vemos ingests records and scores them with similarity matrices.
//
// An Engine resolves records from a directory tree or a description file,
// loads dense or sparse score matrices, splits every matrix into match and
// nonmatch scores according to the records' ground truth and fuses several
// matrices into one with a support vector classifier.
//
// # Quick Start
//
//	ctx := context.Background()
//	eng := vemos.New(vemos.WithLogger(vemos.NewTextLogger(slog.LevelInfo)))
//
//	err := eng.ResolveFromDirectory(ctx, "./data", nil, resolver.Options{IDsInFolders: true})
//	err = eng.LoadMatrices(ctx, []vemos.MatrixSource{
//	    {Name: "ssim", Path: "./ssim.txt", Kind: matrix.Similarity},
//	    {Name: "mse", Path: "./mse.txt", Kind: matrix.Similarity},
//	}, matrix.FixedPolicy(matrix.StrategyMean))
//
//	res, err := eng.Fuse(ctx, vemos.FuseRequest{
//	    Matrices: []string{"ssim", "mse"},
//	    Kernel:   classifier.RBF,
//	    Name:     "fused",
//	})
//
// # State
//
// Every operation either commits a complete new State or fails and leaves
// the committed State as it was. The match index is rebuilt on every commit
// that changes records or matrices, so State().Index always describes
// State().Matrices.
//
// # Generated Matrices
//
// Generate compares the files of one data type pairwise with a distance
// metric (Euclidean, Hamming, MSE, NRMSE or SSIM). Sample memory, parallel
// parsing and read bandwidth are bounded by a resource.Controller:
//
//	rc := resource.NewController(resource.Config{SampleMemoryBytes: 512 << 20})
//	eng := vemos.New(vemos.WithResourceController(rc))
//
// # Sessions
//
// SaveSession and LoadSession persist the state through a
// session.Repository, either versioned in a blob store (local, S3, MinIO)
// or in a SQLite catalog:
//
//	catalog, _ := session.OpenSQLiteCatalog("./sessions.db")
//	eng := vemos.New(vemos.WithRepository(catalog))
//	info, err := eng.SaveSession(ctx, "run1")
//
// # Errors
//
// Errors are typed and match their sentinel with errors.Is:
//
//	var dim *vemos.DimensionError
//	if errors.As(err, &dim) { ... }
//	if errors.Is(err, vemos.ErrAlignmentEmpty) { ... }
package vemos

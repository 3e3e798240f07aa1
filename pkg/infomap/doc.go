// Package infomap partitions weighted, possibly directed networks into nested
// modules by minimizing the map equation, the expected description length of
// a random walker's trajectory.
//
// A run computes the flow of the walker once, then executes one or more
// independent trials. Each trial owns its random number generator and its
// tree of modules, so trials can run concurrently. The trial with the
// shortest hierarchical codelength wins and its tree is returned as a Result.
//
//	net := infomap.NewNetwork(4)
//	_ = net.AddTransaction(0, 1, 1, false)
//	cfg, _ := infomap.NewConfig(infomap.WithTrials(10), infomap.WithSeed(7))
//	res, err := infomap.Run(ctx, net, cfg)
package infomap

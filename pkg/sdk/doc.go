// Package viralscan is an embeddable Go client for the viral sequence
// classifier: train a k-mer model from a labeled CSV or Parquet corpus,
// persist it to a file or Redis/Valkey, and classify FASTA payloads.
//
//	client, _ := viralscan.New(ctx,
//	    viralscan.WithDataset("data/viral_sequences.csv"),
//	    viralscan.WithFileStore("models/viral_classifier.bin"),
//	)
//	defer client.Close()
//
//	res, _ := client.Train(ctx)
//	fmt.Printf("accuracy %.3f\n", res.Model.Accuracy)
//
//	pred, _ := client.Predict(ctx, fastaBytes)
//	for _, r := range pred.Results {
//	    fmt.Println(r.SequenceID, r.Label, r.Confidence)
//	}
package viralscan

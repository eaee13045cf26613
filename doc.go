// Package nludb is a Go client for the NLUDB document service.
//
// Files are uploaded, converted into blocks, parsed and tagged with spans, and
// then queried either with a structured FileQuery or with the compact dquery
// language:
//
//	client, _ := nludb.New(ctx, nludb.WithAPIKey(os.Getenv("NLUDB_KEY")))
//	file, _ := client.Files().Upload(ctx, nludb.UploadRequest{
//	    Name:    "contract.txt",
//	    Content: f,
//	    Convert: true,
//	})
//	blocks, _ := client.Files().DQuery(ctx, file.ID, `paragraph @person:"Ada" #"notice"`)
//
// Conversion, parsing, tagging and index inserts run on the server as tasks;
// the returned *Task can be polled with Refresh or awaited with Wait.
//
// # Query cache
//
// With WithRedisQueryCache, results of Files().Query and Files().DQuery are
// cached in Redis and dropped whenever the SDK mutates the file.
package nludb

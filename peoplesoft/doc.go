// Package peoplesoft is a client for the PeopleSoft Integration Broker
// ExecuteQuery.v1 REST service operation.
//
// A call has three steps, each usable on its own:
//
//   - BuildURL turns a query name, ordered Prompts and QueryOptions into
//     the request URL.
//   - Client.Fetch sends the GET (Basic auth and/or PS_TOKEN cookie) and
//     returns the body text unchanged.
//   - Parse / ParseRows flatten every <row> element of the XML body into a
//     Row (field local name -> trimmed text).
//
// Client.Run does all three and keeps the raw body when parsing fails.
//
// Usage:
//
//	client, err := peoplesoft.NewClient(peoplesoft.Config{
//	    BaseURL:     "https://ps.example.com/PSIGW/RESTListeningConnector/PSFT_EP/ExecuteQuery.v1",
//	    Credentials: &peoplesoft.Credentials{Username: "PSREST", Password: password},
//	})
//
//	prompts := peoplesoft.Prompts{
//	    {Name: "VENDOR_STATUS", Value: "I"},
//	    {Name: "VENDOR_ID_OFFSET", Value: ""},
//	}
//	opts := peoplesoft.DefaultQueryOptions()
//	opts.MaxRows = 50
//
//	res, err := client.Run(ctx, "FM_VENDOR_MASTER", prompts, opts)
//	for _, row := range res.Rows {
//	    fmt.Println(row["VENDOR_ID"], row["VENDOR_NAME_SHORT"])
//	}
//
// Errors:
//
// Failures are marked with errors.ErrTransport (nothing came back),
// errors.ErrRemoteRejection (non-2xx; see *RemoteError for status and body)
// or errors.ErrParse (body is not well-formed XML). Nothing is retried.
package peoplesoft

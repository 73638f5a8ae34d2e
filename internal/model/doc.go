// Package model defines the core data structures used throughout
// mc-downloader.
//
// # Releases
//
// ReleaseSummary is one entry of the release listing; ReleaseDescriptor is
// the detailed metadata of one release:
//
//	desc := &model.ReleaseDescriptor{
//	    ID:          "1.20.1",
//	    ManifestURL: "https://example.com/v1/packages/.../1.20.1.json",
//	    Primary:     model.PrimaryBinary{Hash: "0c3ec5...", URL: ".../client.jar"},
//	}
//	fmt.Println(desc.Primary.FileName()) // "client.jar"
//
// # Work items
//
// WorkItem is the unit the download scheduler operates on:
//
//	item := model.WorkItem{
//	    ID:   "1.20.1_client",
//	    URL:  "https://mirror/mc/game/0c3ec5.../client.jar",
//	    Path: "/games/versions/1.20.1/1.20.1.jar",
//	    Kind: model.KindClient,
//	}
//
// TaskState tracks a task through Queued, Running and one of the terminal
// states Succeeded, Failed or Cancelled.
package model

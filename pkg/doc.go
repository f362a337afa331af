// Package pkg provides the core libraries for Cardcrop.
//
// # Overview
//
// Cardcrop turns print-and-play card sheets (several cards per PDF page) into
// documents with one card per page, split into fronts and backs. The pkg
// directory is organized into three areas:
//
//  1. Geometry: [grid] (card rectangles of a page) and [assign] (front/back
//     slot of each card for the four layout modes)
//  2. Documents: [document] (pdfcpu-backed source and sink) and [preview]
//     (grid overlay and zoom lens as PNG or SVG)
//  3. Orchestration and infrastructure: [pipeline] (options, planning,
//     materialization, caching), [cache], [server], [observability],
//     [errors] and [buildinfo]
//
// # Architecture
//
// The data flow of a crop run:
//
//	source PDF
//	     ↓
//	[document] page sizes
//	     ↓
//	[grid] cells per page  →  [assign] placements (slot + crop rectangle)
//	     ↓
//	[pipeline] plan, then materialize into a [document] sink
//	     ↓
//	cropped_cards.pdf  or  front_cards.pdf + back_cards.pdf
//
// # Quick Start
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	result, err := runner.Crop(ctx, pdfBytes, pipeline.Options{
//	    Rows:    3,
//	    Columns: 3,
//	    Duplex:  true,
//	})
//	if err != nil {
//	    return err
//	}
//	paths, err := result.Output.WriteDir("out")
//
// Geometry is in PDF points with the origin at the bottom-left of the page.
// Only [preview] converts to display pixels.
//
// [grid]: https://pkg.go.dev/github.com/matzehuels/cardcrop/pkg/grid
// [assign]: https://pkg.go.dev/github.com/matzehuels/cardcrop/pkg/assign
// [document]: https://pkg.go.dev/github.com/matzehuels/cardcrop/pkg/document
// [preview]: https://pkg.go.dev/github.com/matzehuels/cardcrop/pkg/preview
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/cardcrop/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/cardcrop/pkg/cache
// [server]: https://pkg.go.dev/github.com/matzehuels/cardcrop/pkg/server
// [observability]: https://pkg.go.dev/github.com/matzehuels/cardcrop/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/cardcrop/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/cardcrop/pkg/buildinfo
package pkg

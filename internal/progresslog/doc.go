// Copyright (c) 2020-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package progresslog provides periodic logging of mining progress.

Tests are included to ensure proper functionality.

## Feature Overview

- Maintains cumulative totals about searched nonces between each logging
  interval
  - Total number of nonces tried
  - Total number of solutions found
  - Total number of solutions rejected by the difficulty target
- Logs all cumulative data every 10 seconds
- Immediately logs any outstanding data along with the details of each mined
  block
*/
package progresslog

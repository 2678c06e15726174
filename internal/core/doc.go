// Package core provides the business logic for the stock dashboard: dataset
// uploads, invoice row storage, filtering, KPIs, and reports. This package
// has no HTTP dependencies and can be used by any frontend.
package core

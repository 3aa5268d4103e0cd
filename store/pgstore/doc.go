// Package pgstore implements the bitguard store contracts on PostgreSQL through database/sql
// and the pgx stdlib driver. Refresh rotation is a single UPDATE guarded on the presented
// token value, so concurrent refreshes resolve to one winner inside the database.
package pgstore

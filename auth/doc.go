/*
Package auth is for authentication and authorization. It contains the Credential issued by an external authentication server, a client for that server and the access policy tables.

Credentials

The engine never stores a credential. It is passed explicitly into every policy check and every catalog operation. Within an HTTP request, NewContext and FromContext carry it from the middleware to the handler.

Policies

Every collection has a table which maps an action (read, create, update, delete) to the titles which may perform it.
An action which is missing from the table allows nobody.

  jokes_public:  read by Employee and Manager, written by Manager
  jokes_private: read by Manager, created by Employee and Manager, updated and deleted by Manager

A missing credential is always denied, before the table is consulted.
*/
package auth

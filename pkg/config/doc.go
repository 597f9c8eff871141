/*
Package config holds configuration for nebula-fdw.

Three layers are provided:

  - BaseConfig tunes batching, transport timeouts, retries and observability
    and is shared by every connector.
  - Options is the untyped name/value map the host engine attaches to
    foreign servers and tables. Connectors read their required settings
    from it and report missing ones as configuration errors.
  - Catalog describes servers and tables in YAML so scans can be run
    outside a host engine.

YAML files loaded with Load or LoadCatalog may reference environment
variables as ${NAME}:

	servers:
	  pool:
	    connector: cognito
	    options:
	      aws_access_key_id: ${AWS_ACCESS_KEY_ID}
	      aws_secret_access_key: ${AWS_SECRET_ACCESS_KEY}
	      region: eu-west-1
	      user_pool_id: eu-west-1_abc
*/
package config
